package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "{0} must not be blank"
	eqFieldTag   = "eqfield"
	eqFieldText  = "passwords do not match"
	requiredTag  = "required"
	requiredText = "this field is required"
)

// FormValidator checks form structs and renders failures as English messages
// keyed by the field's JSON name.
type FormValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewFormValidator instantiates the validator for use.
func NewFormValidator() *FormValidator {
	validate := validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &FormValidator{validate: validate, translator: translator}

	_ = validate.RegisterValidation(notBlankTag, validators.NotBlank)
	v.registerTranslation(notBlankTag, notBlankText, false)
	v.registerTranslation(eqFieldTag, eqFieldText, true)
	v.registerTranslation(requiredTag, requiredText, true)

	return v
}

func (v *FormValidator) registerTranslation(tag, text string, override bool) {
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Check validates form and returns one message per failing field, or nil.
func (v *FormValidator) Check(form any) map[string]string {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{"": err.Error()}
	}

	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fe.Translate(v.translator)
	}
	return out
}
