// Package signer orchestrates a full check-in run: credential validation,
// forum enumeration, token retrieval, and one check-in per followed forum
// with bounded concurrency and client-side pacing.
package signer
