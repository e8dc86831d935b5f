package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	slugPattern       = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	remoteNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
)

// customRules are registered on the shared validator at first use.
var customRules = map[string]func(string) bool{
	"slug":       IsSlug,
	"remotename": IsRemoteName,
	"branchname": IsBranchName,
}

var shared = sync.OnceValue(func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	for tag, check := range customRules {
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		})
	}
	return v
})

// ValidationError is one failed rule on one field, named by its JSON key.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// ValidationErrors is returned by ValidateStruct when any rule fails.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v))
	for _, f := range v {
		rule := f.Tag
		if f.Param != "" {
			rule += "=" + f.Param
		}
		parts = append(parts, fmt.Sprintf("%s failed on %s", f.Field, rule))
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct runs the struct's validate tags. Besides the stock tags,
// slug, remotename and branchname are available.
func ValidateStruct(s any) error {
	err := shared().Struct(s)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	failures := make(ValidationErrors, len(fieldErrs))
	for i, fe := range fieldErrs {
		failures[i] = ValidationError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
	}
	return failures
}

// RegisterValidation adds a rule to the shared validator.
func RegisterValidation(tag string, fn validator.Func) error {
	return shared().RegisterValidation(tag, fn)
}

// IsSlug reports whether value is a lowercase, hyphen separated identifier.
func IsSlug(value string) bool {
	return slugPattern.MatchString(value)
}

// IsRemoteName reports whether value is acceptable as a remote user or repository name.
func IsRemoteName(value string) bool {
	return remoteNamePattern.MatchString(value) && !strings.HasSuffix(value, ".git")
}

// IsBranchName applies the subset of git-check-ref-format rules that matter
// for branch names typed by users.
func IsBranchName(value string) bool {
	if value == "" || value == "@" || strings.HasPrefix(value, "-") || strings.HasPrefix(value, "/") {
		return false
	}
	if strings.HasSuffix(value, "/") || strings.HasSuffix(value, ".") || strings.HasSuffix(value, ".lock") {
		return false
	}
	for _, bad := range []string{"..", "//", "@{", "/."} {
		if strings.Contains(value, bad) {
			return false
		}
	}
	for _, r := range value {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(" ~^:?*[\\", r) {
			return false
		}
	}
	return true
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}
