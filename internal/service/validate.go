package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/victorivanov/supportline/internal/models"
)

// newValidator returns a validator that reports fields by their JSON name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldError converts the first validator failure into a ValidationError.
func fieldError(err error) *ServiceError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Validation("INVALID_FIELD", "request is invalid")
	}
	fe := verrs[0]
	field := fe.Field()

	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		msg = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		msg = field + " is invalid"
	}
	return Validation("INVALID_FIELD", msg)
}

// resolveSend validates req for sender and returns the conversation it
// belongs to. Users always write to their own thread; the operator must
// name the thread.
func (b *Broker) resolveSend(sender models.Identity, req *models.SendRequest) (string, error) {
	if err := b.validate.Struct(req); err != nil {
		return "", fieldError(err)
	}

	if req.Content != nil && utf8.RuneCountInString(*req.Content) > b.maxContentLength {
		return "", Validation("CONTENT_TOO_LONG", fmt.Sprintf("content must be at most %d characters", b.maxContentLength))
	}
	if req.Content != nil && strings.TrimSpace(*req.Content) == "" {
		req.Content = nil
	}
	if req.Content == nil && req.AttachmentID == nil {
		return "", Validation("EMPTY_MESSAGE", "message needs content or an attachment")
	}

	switch sender.Role {
	case models.RoleUser:
		if sender.Address == "" {
			return "", Unauthorized("UNAUTHORIZED", "sender has no address")
		}
		if req.OwnerID != "" && req.OwnerID != sender.Address {
			return "", Forbidden("FORBIDDEN", "users can only write to their own conversation")
		}
		return sender.Address, nil

	case models.RoleOperator:
		owner := strings.TrimSpace(req.OwnerID)
		if owner == "" {
			return "", Validation("OWNER_REQUIRED", "owner_id is required when replying")
		}
		if owner == models.OperatorKey {
			return "", Validation("INVALID_OWNER", "owner_id does not name a user")
		}
		return owner, nil

	default:
		return "", Unauthorized("UNAUTHORIZED", "unknown sender role")
	}
}

// validOwner rejects empty or reserved conversation keys.
func validOwner(owner string) error {
	if strings.TrimSpace(owner) == "" || owner == models.OperatorKey {
		return Validation("INVALID_OWNER", "owner_id does not name a user")
	}
	return nil
}
