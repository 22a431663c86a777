package models

// Role distinguishes the two parties of a conversation.
type Role string

const (
	RoleUser     Role = "user"
	RoleOperator Role = "operator"
)

// OperatorKey is the presence key of the single operator party.
const OperatorKey = "@operator"

// Identity is the authenticated party behind a request or channel, as
// resolved by the token issuer. Address is the user's wallet address and the
// conversation key of their thread; operators leave it empty.
type Identity struct {
	Address string `json:"address"`
	Role    Role   `json:"role"`
}

// IsOperator reports whether the identity belongs to the operator.
func (i Identity) IsOperator() bool {
	return i.Role == RoleOperator
}

// PresenceKey returns the key the identity's channel registers under.
func (i Identity) PresenceKey() string {
	if i.IsOperator() {
		return OperatorKey
	}
	return i.Address
}

// Direction returns the message direction for messages this identity authors.
func (i Identity) Direction() Direction {
	if i.IsOperator() {
		return DirectionOperator
	}
	return DirectionUser
}

// SendRequest is the inbound send payload, over the gateway or HTTP.
type SendRequest struct {
	OwnerID      string  `json:"owner_id,omitempty" validate:"omitempty,max=128"`
	Content      *string `json:"content,omitempty" validate:"omitempty,max=2000"`
	AttachmentID *int64  `json:"attachment_id,string,omitempty" validate:"omitempty,gt=0"`
	Nonce        string  `json:"nonce,omitempty" validate:"omitempty,max=64"`
}
