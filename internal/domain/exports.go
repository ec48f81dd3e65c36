package domain

import (
	interfaces "cloak/internal/domain/interfaces"
	types "cloak/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	ConversationID      = types.ConversationID
	RemoteIdentity      = types.RemoteIdentity
	Fingerprint         = types.Fingerprint
	SignedPreKeyID      = types.SignedPreKeyID
	OneTimePreKeyID     = types.OneTimePreKeyID
	Identity            = types.Identity
	X25519Public        = types.X25519Public
	X25519Private       = types.X25519Private
	Ed25519Public       = types.Ed25519Public
	Ed25519Private      = types.Ed25519Private
	SessionStatus       = types.SessionStatus
	SessionRecord       = types.SessionRecord
	VerificationMethod  = types.VerificationMethod
	VerificationRecord  = types.VerificationRecord
	VerificationResult  = types.VerificationResult
	RatchetHeader       = types.RatchetHeader
	RatchetState        = types.RatchetState
	EncryptedEnvelope   = types.EncryptedEnvelope
	DecryptedMessage    = types.DecryptedMessage
	Tombstone           = types.Tombstone
	OneTimePreKeyPair   = types.OneTimePreKeyPair
	OneTimePreKeyPublic = types.OneTimePreKeyPublic
	PreKeyBundle        = types.PreKeyBundle
	PreKeyMessage       = types.PreKeyMessage
	ScanAction          = types.ScanAction
	ScanCategory        = types.ScanCategory
	ScanContext         = types.ScanContext
	ScanDecision        = types.ScanDecision
	Violation           = types.Violation
	SendState           = types.SendState
	SendReceipt         = types.SendReceipt
	ConfirmationToken   = types.ConfirmationToken
)

// Enum values referenced across service packages, re-exported alongside
// their types.
const (
	StatusNone        = types.StatusNone
	StatusPending     = types.StatusPending
	StatusKeyExchange = types.StatusKeyExchange
	StatusEstablished = types.StatusEstablished
	StatusVerified    = types.StatusVerified
	StatusFailed      = types.StatusFailed

	VerifyMethodNone      = types.VerifyMethodNone
	VerifyMethodBiometric = types.VerifyMethodBiometric
	VerifyMethodManual    = types.VerifyMethodManual

	CategoryPaymentCard = types.CategoryPaymentCard
	CategoryNationalID  = types.CategoryNationalID
	CategoryIBAN        = types.CategoryIBAN
	CategoryEmail       = types.CategoryEmail
	CategoryPhone       = types.CategoryPhone
	CategoryCredential  = types.CategoryCredential

	ActionProceed      = types.ActionProceed
	ActionRedact       = types.ActionRedact
	ActionForceEncrypt = types.ActionForceEncrypt
	ActionBlock        = types.ActionBlock

	SendCompleted    = types.SendCompleted
	SendBlocked      = types.SendBlocked
	SendAwaitingUser = types.SendAwaitingUser

	SessionSchemaVersion = types.SessionSchemaVersion
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityStore       = interfaces.IdentityStore
	SessionStore        = interfaces.SessionStore
	PreKeyStore         = interfaces.PreKeyStore
	Directory           = interfaces.Directory
	Transport           = interfaces.Transport
	Authenticator       = interfaces.Authenticator
	KeyExchangeService  = interfaces.KeyExchangeService
	VerificationService = interfaces.VerificationService
	Scanner             = interfaces.Scanner
	MessageService      = interfaces.MessageService
)
