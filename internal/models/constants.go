package models

// Роли пользователей
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// Виды доказательств в споре
const (
	EvidenceKindScreenshot    = "screenshot"
	EvidenceKindDocument      = "document"
	EvidenceKindCommunication = "communication"
	EvidenceKindVideo         = "video"
	EvidenceKindOther         = "other"
)

// ValidEvidenceKinds список валидных видов доказательств
var ValidEvidenceKinds = map[string]struct{}{
	EvidenceKindScreenshot:    {},
	EvidenceKindDocument:      {},
	EvidenceKindCommunication: {},
	EvidenceKindVideo:         {},
	EvidenceKindOther:         {},
}

// ValidEvidenceRoles — кто может прикладывать доказательства
var ValidEvidenceRoles = map[string]struct{}{
	RoleClient:     {},
	RoleFreelancer: {},
}

// MaxEvidencePerSide ограничивает накопление доказательств одной стороной.
const MaxEvidencePerSide = 20
