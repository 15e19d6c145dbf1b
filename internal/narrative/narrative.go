// Package narrative holds the Narrative domain model and the operations the
// dashboard runs against the platform services.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Permission is a user's access level on a Narrative's workspace.
type Permission string

const (
	PermAdmin Permission = "a"
	PermWrite Permission = "w"
	PermRead  Permission = "r"
	PermNone  Permission = "n"
)

func (p Permission) IsAdmin() bool { return p == PermAdmin }

func (p Permission) String() string {
	switch p {
	case PermAdmin:
		return "admin"
	case PermWrite:
		return "write"
	case PermRead:
		return "read"
	case PermNone:
		return "none"
	default:
		return string(p)
	}
}

// Narrative is one Narrative document as listed by the workspace service.
type Narrative struct {
	WorkspaceID int
	ObjectID    int
	Title       string
	Owner       string
	LastSaved   time.Time
	Permission  Permission
	Public      bool
}

// Ref is the workspace reference of the Narrative object, "wsid/objid".
func (n Narrative) Ref() string { return fmt.Sprintf("%d/%d", n.WorkspaceID, n.ObjectID) }

// App is a Narrative app referenced by one or more cells.
type App struct {
	ID   string
	Tag  string
	Icon IconInfo
}

// DataObject is a workspace object stored alongside a Narrative.
type DataObject struct {
	ObjectID int
	Name     string
	Type     string
	SavedBy  string
	Saved    time.Time
}

// Cells counts a Narrative's cells by kind.
type Cells struct {
	App      int
	Markdown int
	Code     int
	Other    int
}

func (c Cells) Total() int { return c.App + c.Markdown + c.Code + c.Other }

// Summary is what the Narrative object records about itself.
type Summary struct {
	Version int
	Created time.Time
	Cells   Cells
	Apps    []AppRef
}

// Detail is everything the detail panel shows for one Narrative.
type Detail struct {
	Narrative  Narrative
	Version    int
	Created    time.Time
	Cells      Cells
	SharedWith []string
	Apps       []App
	Objects    []DataObject
}

// AppRef names an app and release tag as recorded in a Narrative's metadata.
type AppRef struct {
	ID  string
	Tag string
}

// Catalog lists Narratives and the contents of one Narrative.
type Catalog interface {
	ListNarratives(ctx context.Context) ([]Narrative, error)
	Summary(ctx context.Context, n Narrative) (Summary, error)
	DataObjects(ctx context.Context, wsID int) ([]DataObject, error)
	// SharedWith lists the users other than the caller and the owner who
	// hold any access to n.
	SharedWith(ctx context.Context, n Narrative) ([]string, error)
}

// ErrInvalidType is returned for strings that are not "Module.Type" with an
// optional "-major.minor" version.
var ErrInvalidType = errors.New("invalid workspace type")

var wsTypePattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)(?:-\d+(?:\.\d+)?)?$`)

func parseType(fullType string) (module, name string, err error) {
	m := wsTypePattern.FindStringSubmatch(fullType)
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidType, fullType)
	}
	return m[1], m[2], nil
}

// ReadableTypeName turns a full workspace type into words, so
// "KBaseMatrices.AmpliconMatrix-1.2" becomes "Amplicon Matrix".
func ReadableTypeName(fullType string) (string, error) {
	_, name, err := parseType(fullType)
	if err != nil {
		return "", err
	}
	return strings.Join(splitCamel(name), " "), nil
}

// TypeModule returns the module of a full workspace type, or "" if the type
// is malformed.
func TypeModule(fullType string) string {
	module, _, err := parseType(fullType)
	if err != nil {
		return ""
	}
	return module
}

// splitCamel breaks at lower-to-upper changes and before the last capital of
// an acronym: "FBAModel" gives ["FBA", "Model"].
func splitCamel(s string) []string {
	runes := []rune(s)
	var (
		words []string
		start int
	)
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		lowerToUpper := (unicode.IsLower(prev) || unicode.IsDigit(prev)) && unicode.IsUpper(cur)
		acronymEnd := unicode.IsUpper(prev) && unicode.IsUpper(cur) && unicode.IsLower(next)
		if lowerToUpper || acronymEnd {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}

// FormatSnakeCase turns "some_test_string" into "Some test string".
func FormatSnakeCase(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", " "))
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
