// Copyright 2025 Certen Protocol
//
// Package transfer is a reference transaction-kind Handler for a simple
// crypto transfer: it requires the receiver's key only when the receiver
// account demands it, exercising PreHandleContext.RequireKeyIfReceiverSigRequired
// the way a CRYPTO_TRANSFER handler would.
package transfer

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"

	"github.com/certen/prehandle-core/pkg/prehandle"
	"github.com/certen/prehandle-core/pkg/store"
	"github.com/certen/prehandle-core/pkg/txn"
)

// Body is the CRYPTO_TRANSFER transaction body.
type Body struct {
	ReceiverID store.AccountID `json:"receiver_id"`
	Amount     uint64          `json:"amount"`
}

// Handler gathers the keys a crypto transfer requires beyond the payer's
// own (already resolved by PreHandleContext's constructor).
type Handler struct{}

// GatherKeys implements workflow.Handler.
func (Handler) GatherKeys(ctx *prehandle.PreHandleContext) {
	var body Body
	if err := json.Unmarshal(ctx.TxInfo().Body, &body); err != nil {
		panic(prehandle.NewPreCheckError(prehandle.INVALID_TRANSACTION_BODY))
	}
	ctx.RequireKeyIfReceiverSigRequired(body.ReceiverID, prehandle.ACCOUNT_ID_DOES_NOT_EXIST)
}

// EncodeDemo builds a signed CRYPTO_TRANSFER transaction envelope for the
// demo entrypoint: payerPriv signs the body hash with the key matching
// payerID's registered account key.
func EncodeDemo(payerID, receiverID store.AccountID, payerPub ed25519.PublicKey, payerPriv ed25519.PrivateKey) ([]byte, error) {
	body, err := json.Marshal(Body{ReceiverID: receiverID, Amount: 100})
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(body)
	sig := ed25519.Sign(payerPriv, hash[:])

	info := txn.TransactionInfo{
		TransactionID:   txn.TransactionID{PayerID: payerID},
		Kind:            "CRYPTO_TRANSFER",
		Body:            body,
		SignedBytesHash: hash[:],
		Signatures: []txn.SignaturePair{
			{
				Key:       txn.KeyWire{Kind: "ED25519", Bytes: payerPub},
				Signature: sig,
			},
		},
	}
	return json.Marshal(info)
}
