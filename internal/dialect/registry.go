// Package dialect holds the read-only ERN registry: known namespaces and
// their locked prefixes, per-version vocabulary and ordering tables, and
// version detection over a byte stream.
package dialect

import (
	"fmt"
	"slices"
	"strings"

	"github.com/daddykev/ddex-suite/pkg/xmlstream"
)

// Version identifies an ERN schema revision.
type Version uint8

const (
	VersionUnknown Version = iota
	V382
	V42
	V43
)

// Latest is the newest known dialect, used as the non-strict fallback.
const Latest = V43

var versionNames = map[Version]string{
	V382: "3.8.2",
	V42:  "4.2",
	V43:  "4.3",
}

var versionTokens = map[Version]string{
	V382: "382",
	V42:  "42",
	V43:  "43",
}

// Versions lists the known dialects oldest first.
func Versions() []Version {
	return []Version{V382, V42, V43}
}

// String returns the dotted version.
func (v Version) String() string {
	if name, ok := versionNames[v]; ok {
		return name
	}
	return "unknown"
}

// Namespace returns the ERN namespace URI of the version.
func (v Version) Namespace() string {
	return ernBase + versionTokens[v]
}

// SchemaVersionID returns the MessageSchemaVersionId attribute value.
func (v Version) SchemaVersionID() string {
	return "ern/" + versionTokens[v]
}

// SchemaLocation returns the conventional xsi:schemaLocation value.
func (v Version) SchemaLocation() string {
	ns := v.Namespace()
	return ns + " " + ns + "/release-notification.xsd"
}

// MarshalText encodes the version as its dotted form.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText accepts "4.3", "43", "ern/43" or a namespace URI.
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVersion parses a version label.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if ns, ok := Classify(s); ok && ns.Version != VersionUnknown {
		return ns.Version, nil
	}
	token := strings.TrimPrefix(strings.ToLower(s), "ern/")
	token = strings.ReplaceAll(token, ".", "")
	for v, t := range versionTokens {
		if token == t {
			return v, nil
		}
	}
	return VersionUnknown, fmt.Errorf("unknown ERN version %q", s)
}

// Class describes how a namespace relates to the ERN family.
type Class uint8

const (
	ClassCustom Class = iota
	ClassStandard
	ClassVersionSpecific
	ClassAuxiliary
)

func (c Class) String() string {
	switch c {
	case ClassStandard:
		return "standard"
	case ClassVersionSpecific:
		return "version-specific"
	case ClassAuxiliary:
		return "version-auxiliary"
	default:
		return "custom"
	}
}

// Namespace is a registry entry.
type Namespace struct {
	URI     string
	Prefix  string
	Class   Class
	Version Version
}

const (
	ernBase      = "http://ddex.net/xml/ern/"
	avsNamespace = "http://ddex.net/xml/avs/avs"
	ddexCommon   = "http://ddex.net/xml/ddexC"
	// ERNPrefix is the locked prefix for every ERN namespace.
	ERNPrefix = "ern"
)

var registry = []Namespace{
	{URI: ernBase + "382", Prefix: ERNPrefix, Class: ClassVersionSpecific, Version: V382},
	{URI: ernBase + "42", Prefix: ERNPrefix, Class: ClassVersionSpecific, Version: V42},
	{URI: ernBase + "43", Prefix: ERNPrefix, Class: ClassVersionSpecific, Version: V43},
	{URI: avsNamespace, Prefix: "avs", Class: ClassAuxiliary},
	{URI: ddexCommon, Prefix: "ddexC", Class: ClassAuxiliary},
	{URI: xmlstream.XSINamespace, Prefix: "xsi", Class: ClassStandard},
	{URI: xmlstream.XMLNamespace, Prefix: "xml", Class: ClassStandard},
}

var lockedPrefixes = func() map[string]bool {
	out := map[string]bool{"xmlns": true}
	for _, ns := range registry {
		out[ns.Prefix] = true
	}
	return out
}()

// Classify matches uri against the registry by longest prefix. A registry
// URI matches itself or any URI that extends it with a path segment.
func Classify(uri string) (Namespace, bool) {
	best := -1
	for i, ns := range registry {
		if uri != ns.URI && !strings.HasPrefix(uri, ns.URI+"/") {
			continue
		}
		if best < 0 || len(ns.URI) > len(registry[best].URI) {
			best = i
		}
	}
	if best < 0 {
		return Namespace{URI: uri, Class: ClassCustom}, false
	}
	ns := registry[best]
	ns.URI = uri
	return ns, true
}

// PreferredPrefix returns the locked prefix for a known uri.
func PreferredPrefix(uri string) (string, bool) {
	ns, ok := Classify(uri)
	if !ok {
		return "", false
	}
	return ns.Prefix, true
}

// IsLockedPrefix reports whether prefix is reserved by the registry.
func IsLockedPrefix(prefix string) bool {
	return lockedPrefixes[prefix]
}

// IsERN reports whether uri is an ERN namespace of any version.
func IsERN(uri string) bool {
	ns, ok := Classify(uri)
	return ok && ns.Version != VersionUnknown
}

// Known returns a copy of the registry entries.
func Known() []Namespace {
	return slices.Clone(registry)
}
