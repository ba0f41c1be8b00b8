package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Build modes.
const (
	Debug   = "debug"
	Release = "release"
)

// Android native build types.
const (
	BuildTypeNDK  = "ndk-build"
	BuildTypeNone = "none"
)

// Options is one compile request as given on the command line. It is never
// modified after validation; defaults are resolved into State.
type Options struct {
	Platform  string
	SourceDir string
	ProjDir   string
	Mode      string `validate:"omitempty,oneof=debug release"`
	Jobs      int    `validate:"gte=0"`
	OutputDir string

	// android
	AndroidPlatform string
	BuildType       string `validate:"omitempty,oneof=ndk-build none"`
	AppABI          string // colon separated, e.g. "armeabi-v7a:arm64-v8a"
	NDKToolchain    string
	NDKCppFlags     string
	NoAPK           bool
	NoSign          bool

	// windows
	VSVersion int `validate:"gte=0"`

	// web
	SourceMap   bool
	Advanced    bool
	WebToolsDir string

	// apple
	TargetName   string
	SignIdentity string

	// scripts
	NoRes          bool
	CompileScript  *bool
	LuaEncrypt     bool
	LuaEncryptKey  string
	LuaEncryptSign string
	ScriptCompiler string
}

var validate = validator.New()

// Normalize lowercases the enumerated values.
func (o Options) Normalize() Options {
	o.Mode = strings.ToLower(strings.TrimSpace(o.Mode))
	o.BuildType = strings.ToLower(strings.TrimSpace(o.BuildType))
	o.Platform = strings.ToLower(strings.TrimSpace(o.Platform))
	return o
}

// Validate checks the option values. Failures are WrongArgs errors.
func (o Options) Validate() error {
	err := validate.Struct(o.Normalize())
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Kind: WrongArgs, Op: "options", Err: err}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return &Error{Kind: WrongArgs, Op: "options", Err: errors.New(strings.Join(msgs, "; "))}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s %q must be one of: %s", flagName(fe.Field()), fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be >= %s", flagName(fe.Field()), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", flagName(fe.Field()), fe.Tag())
	}
}

var flagNames = map[string]string{
	"Mode":      "--mode",
	"Jobs":      "--jobs",
	"BuildType": "--build-type",
	"VSVersion": "--vs",
}

func flagName(field string) string {
	if n, ok := flagNames[field]; ok {
		return n
	}
	return field
}

// APITarget returns the android platform as "android-N", accepting a bare N.
func (o Options) APITarget() string {
	ap := strings.TrimSpace(o.AndroidPlatform)
	if ap == "" || strings.HasPrefix(ap, "android-") {
		return ap
	}
	return "android-" + ap
}

// ABIs returns the --app-abi values.
func (o Options) ABIs() []string {
	if o.AppABI == "" {
		return nil
	}
	var out []string
	for _, a := range strings.Split(o.AppABI, ":") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
