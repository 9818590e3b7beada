// Package common contains common constants and variables used across services
package common

import "github.com/gagliardetto/solana-go"

var (
	WSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	USDCMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	USDTMint = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
)

// PivotMints are the tokens triangular candidate cycles are anchored on.
var PivotMints = []solana.PublicKey{WSOLMint, USDCMint, USDTMint}
