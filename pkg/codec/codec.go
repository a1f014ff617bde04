// Copyright 2025 Certen Protocol
//
// Package codec implements the wire-decoding boundary the pre-handle core
// consumes: turning raw transaction bytes into a TransactionInfo.
// Production nodes in this lineage decode protobuf transaction envelopes;
// the decoder is swappable, so the JSONDecoder here exists only to make
// the core runnable and testable end-to-end.

package codec

import (
	"encoding/json"
	"errors"

	"github.com/certen/prehandle-core/pkg/prehandle"
	"github.com/certen/prehandle-core/pkg/txn"
)

// ErrMalformedEnvelope and ErrMissingBody are the two decode failure
// modes a pre-handle workflow distinguishes: a malformed envelope maps to
// INVALID_TRANSACTION, a missing body to INVALID_TRANSACTION_BODY.
var (
	ErrMalformedEnvelope = errors.New("codec: malformed transaction envelope")
	ErrMissingBody       = errors.New("codec: missing transaction body")
)

// Decoder turns raw transaction bytes into a decoded TransactionInfo.
type Decoder interface {
	Decode(raw []byte) (*txn.TransactionInfo, error)
}

// JSONDecoder is a reference Decoder implementation.
type JSONDecoder struct{}

// DecodeErrorResponseCode maps a Decode error to the response code a
// pre-handle workflow reports for it.
func DecodeErrorResponseCode(err error) prehandle.ResponseCode {
	switch {
	case errors.Is(err, ErrMissingBody):
		return prehandle.INVALID_TRANSACTION_BODY
	default:
		return prehandle.INVALID_TRANSACTION
	}
}

func (JSONDecoder) Decode(raw []byte) (*txn.TransactionInfo, error) {
	if len(raw) == 0 {
		return nil, ErrMalformedEnvelope
	}
	var info txn.TransactionInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, ErrMalformedEnvelope
	}
	if len(info.Body) == 0 {
		return nil, ErrMissingBody
	}
	return &info, nil
}
