package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dekorekillian57-star/spendo/pkg/enums"
)

var (
	ghanaPhonePattern = regexp.MustCompile(`^(?:\+233|0)[0-9]{9}$`)
	recipientValidate = newRecipientValidator()
)

func newRecipientValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("gh_phone", func(fl validator.FieldLevel) bool {
		return ghanaPhonePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidGhanaPhone reports whether value is a Ghana mobile number (+233XXXXXXXXX or 0XXXXXXXXX).
func ValidGhanaPhone(value string) bool {
	return ghanaPhonePattern.MatchString(NormalizePhone(value))
}

// NormalizePhone strips spaces and dashes users commonly type.
func NormalizePhone(value string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(value))
}

// Recipient is the delivery target for one unit of a package. The concrete
// variant is fixed by the package type.
type Recipient interface {
	PackageTypes() []enums.PackageType
	normalize()
}

// PhoneRecipient receives data bundles and airtime.
type PhoneRecipient struct {
	Phone string `json:"phone" validate:"required,gh_phone"`
}

// CableRecipient is a decoder smart card for cable TV subscriptions.
type CableRecipient struct {
	SmartCard string `json:"smart_card" validate:"required,min=6,max=20,alphanum"`
}

// ResultCheckerRecipient gets the checker voucher over WhatsApp.
type ResultCheckerRecipient struct {
	WhatsApp string `json:"whatsapp" validate:"required,gh_phone"`
}

// AfaRecipient carries the registration details for an MTN AFA bundle.
type AfaRecipient struct {
	Name      string `json:"name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email"`
	DOB       string `json:"dob" validate:"required,datetime=2006-01-02"`
	GhanaCard string `json:"ghana_card" validate:"required,max=32"`
	MTNNumber string `json:"mtn_number" validate:"required,gh_phone"`
}

func (PhoneRecipient) PackageTypes() []enums.PackageType {
	return []enums.PackageType{enums.PackageTypeData, enums.PackageTypeAirtime}
}

func (CableRecipient) PackageTypes() []enums.PackageType {
	return []enums.PackageType{enums.PackageTypeCable}
}

func (ResultCheckerRecipient) PackageTypes() []enums.PackageType {
	return []enums.PackageType{enums.PackageTypeResultChecker}
}

func (AfaRecipient) PackageTypes() []enums.PackageType {
	return []enums.PackageType{enums.PackageTypeAFA}
}

func (r *PhoneRecipient) normalize()         { r.Phone = NormalizePhone(r.Phone) }
func (r *CableRecipient) normalize()         { r.SmartCard = strings.TrimSpace(r.SmartCard) }
func (r *ResultCheckerRecipient) normalize() { r.WhatsApp = NormalizePhone(r.WhatsApp) }
func (r *AfaRecipient) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.DOB = strings.TrimSpace(r.DOB)
	r.GhanaCard = strings.TrimSpace(r.GhanaCard)
	r.MTNNumber = NormalizePhone(r.MTNNumber)
}

// Recipients is the ordered recipient list persisted as a JSON column.
type Recipients []Recipient

// newRecipient returns an empty variant for the package type.
func newRecipient(pkgType enums.PackageType) (Recipient, error) {
	switch pkgType {
	case enums.PackageTypeData, enums.PackageTypeAirtime:
		return &PhoneRecipient{}, nil
	case enums.PackageTypeCable:
		return &CableRecipient{}, nil
	case enums.PackageTypeResultChecker:
		return &ResultCheckerRecipient{}, nil
	case enums.PackageTypeAFA:
		return &AfaRecipient{}, nil
	default:
		return nil, fmt.Errorf("unsupported package type %q", pkgType)
	}
}

// RecipientError describes why one entry of a recipient list was rejected.
type RecipientError struct {
	Index  int
	Field  string
	Reason string
}

func (e *RecipientError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("recipient %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("recipient %d: %s %s", e.Index, e.Field, e.Reason)
}

// DecodeRecipients strictly decodes raw input into the variant required by the
// package type and validates every entry.
func DecodeRecipients(pkgType enums.PackageType, raw json.RawMessage) (Recipients, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return Recipients{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &RecipientError{Index: -1, Reason: "must be a list"}
	}
	out := make(Recipients, 0, len(items))
	for i, item := range items {
		rec, err := newRecipient(pkgType)
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.DisallowUnknownFields()
		if err := dec.Decode(rec); err != nil {
			return nil, &RecipientError{Index: i, Reason: fmt.Sprintf("invalid shape for %s package", pkgType)}
		}
		rec.normalize()
		if err := recipientValidate.Struct(rec); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return nil, &RecipientError{Index: i, Field: jsonFieldName(verrs[0].StructField()), Reason: "is invalid"}
			}
			return nil, &RecipientError{Index: i, Reason: err.Error()}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Fits reports whether every entry matches the package type.
func (r Recipients) Fits(pkgType enums.PackageType) bool {
	for _, rec := range r {
		ok := false
		for _, t := range rec.PackageTypes() {
			if t == pkgType {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Phones returns every phone-like value in the list, used for tracking lookups.
func (r Recipients) Phones() []string {
	var phones []string
	for _, rec := range r {
		switch v := rec.(type) {
		case *PhoneRecipient:
			phones = append(phones, v.Phone)
		case *ResultCheckerRecipient:
			phones = append(phones, v.WhatsApp)
		case *AfaRecipient:
			phones = append(phones, v.MTNNumber)
		}
	}
	return phones
}

func (r Recipients) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Recipient(r))
}

// UnmarshalJSON infers the variant from the keys present; the key sets are disjoint.
func (r *Recipients) UnmarshalJSON(data []byte) error {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(Recipients, 0, len(items))
	for i, item := range items {
		var rec Recipient
		switch {
		case has(item, "smart_card"):
			rec = &CableRecipient{}
		case has(item, "whatsapp"):
			rec = &ResultCheckerRecipient{}
		case has(item, "ghana_card"), has(item, "mtn_number"):
			rec = &AfaRecipient{}
		case has(item, "phone"):
			rec = &PhoneRecipient{}
		default:
			return fmt.Errorf("recipient %d: unknown shape", i)
		}
		encoded, err := json.Marshal(item)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(encoded, rec); err != nil {
			return err
		}
		out = append(out, rec)
	}
	*r = out
	return nil
}

// Value implements driver.Valuer.
func (r Recipients) Value() (driver.Value, error) {
	b, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (r *Recipients) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*r = Recipients{}
		return nil
	case []byte:
		return r.UnmarshalJSON(v)
	case string:
		return r.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported recipients type %T", value)
	}
}

func has(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}

func jsonFieldName(structField string) string {
	switch structField {
	case "SmartCard":
		return "smart_card"
	case "WhatsApp":
		return "whatsapp"
	case "GhanaCard":
		return "ghana_card"
	case "MTNNumber":
		return "mtn_number"
	case "DOB":
		return "dob"
	default:
		return strings.ToLower(structField)
	}
}
