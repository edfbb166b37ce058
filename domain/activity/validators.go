package activity

import (
	"approvalflow/bizerror"
	"fmt"
	"math"
	"reflect"
	"regexp"

	"github.com/fundwit/go-commons/types"
	"github.com/go-playground/validator/v10"
)

type fieldRule struct {
	key      string
	tag      string
	required bool
}

type typeSpec struct {
	requireLevel bool
	fields       []fieldRule
}

var (
	validate = newValidator()

	digitsPattern = regexp.MustCompile(`^[0-9]+$`)

	commentSpec = typeSpec{fields: []fieldRule{{key: "comment_id", tag: "intlike", required: true}}}
	levelSpec   = typeSpec{requireLevel: true}
	uploadSpec  = typeSpec{fields: []fieldRule{{key: "key", tag: "text", required: true}, {key: "name", tag: "text"}}}

	specs = map[Type]typeSpec{
		TypeCreation:         {fields: []fieldRule{{key: "source", tag: "intlike"}}},
		TypeStageStarted:     {},
		TypeStageEnded:       {},
		TypeStageSubmitted:   {},
		TypeStageAllApproved: {},
		TypeFinished:         {},
		TypeApprovalsReset:   {},
		TypeEdited:           {},
		TypeUploaded:         uploadSpec,
		TypeWithdrawn:        {},
		TypeLevelStarted:     levelSpec,
		TypeLevelEnded:       levelSpec,
		TypeLevelApproved:    levelSpec,
		TypeLevelRejected:    levelSpec,
		TypeCommentCreated:   commentSpec,
		TypeCommentUpdated:   commentSpec,
		TypeCommentDeleted:   commentSpec,
		TypeCommentReplied:   commentSpec,
		TypeNotificationSent: {fields: []fieldRule{
			{key: "resolver", tag: "text", required: true},
			{key: "recipient", tag: "intlike", required: true},
		}},
	}
)

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("intlike", isIntLike); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("text", isText); err != nil {
		panic(err)
	}
	return v
}

// isIntLike accepts integers, whole floats, and digit strings such as marshalled ids or json.Number.
func isIntLike(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		f := field.Float()
		return f == math.Trunc(f)
	case reflect.String:
		return digitsPattern.MatchString(field.String())
	}
	return false
}

func isText(fl validator.FieldLevel) bool {
	field := fl.Field()
	return field.Kind() == reflect.String && field.String() != ""
}

func IsKnownType(t Type) bool {
	_, found := specs[t]
	return found
}

// Validate checks an activity of the given type before it is recorded.
func Validate(t Type, levelID types.ID, info Info) error {
	spec, found := specs[t]
	if !found {
		return &bizerror.ErrInvalidInput{Field: "type", Message: fmt.Sprintf("unknown activity type '%s'", t)}
	}
	if spec.requireLevel && levelID == 0 {
		return &bizerror.ErrInvalidInput{Field: "approvalLevelId", Message: fmt.Sprintf("activity '%s' requires an approval level", t)}
	}
	for _, rule := range spec.fields {
		v, present := info[rule.key]
		if !present || v == nil {
			if rule.required {
				return &bizerror.ErrInvalidInput{Field: rule.key, Message: "is required"}
			}
			continue
		}
		if err := validate.Var(v, rule.tag); err != nil {
			return &bizerror.ErrInvalidInput{Field: rule.key, Message: fmt.Sprintf("failed on the '%s' rule", rule.tag)}
		}
	}
	return nil
}
