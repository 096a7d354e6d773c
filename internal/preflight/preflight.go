// Package preflight checks a message before it is built: required fields,
// identifier formats and check digits, date order, profile constraints and
// reference closure.
package preflight

import (
	"slices"
	"strconv"
	"time"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/internal/linker"
	"github.com/daddykev/ddex-suite/internal/value"
	"github.com/daddykev/ddex-suite/model"
)

// Field names accepted in Rules.RequiredFields.
const (
	FieldICPN        = "ICPN"
	FieldISRC        = "ISRC"
	FieldReleaseDate = "ReleaseDate"
	FieldGenre       = "Genre"
	FieldDuration    = "Duration"
	FieldTerritory   = "TerritoryCode"
	FieldLabelName   = "LabelName"
	FieldDeal        = "Deal"
	FieldRecipient   = "MessageRecipient"
)

// Rules narrows the checks for a profile. The zero value applies the
// baseline rules only.
type Rules struct {
	Profile        string
	RequiredFields []string
	// MinResources and MaxResources bound the resource references of each
	// release. Zero means unbounded.
	MinResources int
	MaxResources int
	// ResourceKind, when set, is the only resource kind a release may use.
	ResourceKind string
	ReleaseTypes []string
	Territories  []string
}

func (r Rules) requires(field string) bool {
	return slices.Contains(r.RequiredFields, field)
}

// Report is the outcome of a preflight run.
type Report struct {
	Level       config.PreflightLevel
	Diagnostics ddexerrors.List
	// Passed is false when the report holds errors.
	Passed bool
}

// Errors returns the error diagnostics.
func (r *Report) Errors() ddexerrors.List { return r.Diagnostics.Errors() }

// Warnings returns the warning diagnostics.
func (r *Report) Warnings() ddexerrors.List { return r.Diagnostics.Warnings() }

// Infos returns the informational diagnostics.
func (r *Report) Infos() ddexerrors.List { return r.Diagnostics.Infos() }

// Check runs the rules at level. None skips everything. Warn collects
// findings; unresolved references are warnings. Strict treats unresolved
// references as errors and fails with VALIDATION_FAILED when any error
// is found. The report is returned in every case.
func Check(msg *model.Message, level config.PreflightLevel, rules Rules) (*Report, error) {
	rep := &Report{Level: level, Passed: true}
	if level == config.PreflightNone {
		return rep, nil
	}
	c := checker{msg: msg, rules: rules, root: "/" + msg.Type.RootElement()}
	c.header()
	c.releases()
	c.resources()
	c.deals()
	_, linkDiags := linker.Link(msg, level == config.PreflightStrict)
	c.diags = append(c.diags, linkDiags...)

	rep.Diagnostics = c.diags
	rep.Passed = !c.diags.HasErrors()
	if level == config.PreflightStrict && !rep.Passed {
		return rep, ddexerrors.ValidationFailed(rep.Errors())
	}
	return rep, nil
}

type checker struct {
	msg   *model.Message
	rules Rules
	root  string
	diags ddexerrors.List
}

func (c *checker) add(d ddexerrors.Diagnostic, path string) {
	c.diags = append(c.diags, d.At(ddexerrors.Location{Path: path}))
}

func (c *checker) missing(path, field, msg string) {
	c.add(ddexerrors.New(ddexerrors.CodeRequiredFieldMissing, msg).WithSubject(field), path)
}

func (c *checker) missingWarn(path, field, msg string) {
	c.add(ddexerrors.Warn(ddexerrors.CodeRequiredFieldMissing, msg).WithSubject(field), path)
}

// step names the idx-th entity under a list, keyed by its reference.
func step(name, ref string, idx int) string {
	if ref != "" {
		return name + "{" + ref + "}"
	}
	if idx == 0 {
		return name
	}
	return name + "[" + strconv.Itoa(idx+1) + "]"
}

func (c *checker) header() {
	h := c.root + "/MessageHeader"
	if c.msg.ID == "" {
		c.missing(h+"/MessageId", "MessageId", "message has no MessageId")
	}
	if c.msg.Sender.ID() == "" && c.msg.Sender.Name() == "" {
		c.missing(h+"/MessageSender", "MessageSender", "message sender has neither an identifier nor a name")
	}
	if c.msg.Recipient.ID() == "" && c.msg.Recipient.Name() == "" {
		if c.rules.requires(FieldRecipient) {
			c.missing(h+"/MessageRecipient", FieldRecipient, "message recipient is required by profile "+c.rules.Profile)
		} else {
			c.missingWarn(h+"/MessageRecipient", FieldRecipient, "message recipient has neither an identifier nor a name")
		}
	}
	c.partyIDs(h+"/MessageSender", c.msg.Sender.IDs)
	c.partyIDs(h+"/MessageRecipient", c.msg.Recipient.IDs)
	for i, p := range c.msg.Parties {
		c.partyIDs(c.root+"/PartyList/"+step("Party", p.Reference, i), p.IDs)
	}
}

func (c *checker) partyIDs(path string, ids []model.Identifier) {
	for _, id := range ids {
		if dpidNamespace(id.Namespace, id.Value) && !ValidDPID(id.Value) {
			c.add(ddexerrors.Newf(ddexerrors.CodeInvalidFormat, "party identifier %q is not a valid DPID", id.Value).
				WithSubject(id.Value).
				WithHint("a DPID is PADPIDA followed by ten digits and a check character"), path+"/PartyId")
		}
	}
}

func (c *checker) releases() {
	list := c.root + "/ReleaseList"
	if len(c.msg.Releases) == 0 {
		c.missing(list, "Release", "message has no releases")
		return
	}
	kinds := make(map[string]string, len(c.msg.Resources))
	for _, r := range c.msg.Resources {
		kinds[r.Reference] = r.Kind
	}
	for i := range c.msg.Releases {
		rel := &c.msg.Releases[i]
		path := list + "/" + step("Release", rel.Reference, i)
		if rel.Title.Text == "" {
			c.missing(path+"/ReferenceTitle/TitleText", "TitleText", "release "+strconv.Itoa(i)+" has no title")
		}
		if !hasArtist(rel.DisplayArtists) {
			c.missing(path+"/DisplayArtist", "DisplayArtist", "release "+strconv.Itoa(i)+" has no display artist")
		}
		c.icpn(path+"/ReleaseId/ICPN", rel.ICPN)
		if rel.GRid != "" && !ValidGRid(rel.GRid) {
			c.add(ddexerrors.Newf(ddexerrors.CodeInvalidFormat, "GRid %q is malformed", rel.GRid).WithSubject(rel.GRid), path+"/ReleaseId/GRid")
		}
		if rel.ReleaseDate != "" {
			c.date(path+"/ReleaseDate", rel.ReleaseDate)
		} else if c.rules.requires(FieldReleaseDate) {
			c.missing(path+"/ReleaseDate", FieldReleaseDate, "release date is required by profile "+c.rules.Profile)
		}
		if c.rules.requires(FieldGenre) && len(rel.Genres) == 0 {
			c.missing(path+"/Genre", FieldGenre, "genre is required by profile "+c.rules.Profile)
		}
		if c.rules.requires(FieldLabelName) && !hasLabel(rel.Details) {
			c.missing(path+"/ReleaseDetailsByTerritory/LabelName", FieldLabelName, "label name is required by profile "+c.rules.Profile)
		}
		c.territories(path+"/TerritoryCode", rel.Territories)
		c.territories(path+"/ExcludedTerritoryCode", rel.ExcludedTerritories)
		c.profile(path, rel, kinds)
	}
}

func (c *checker) icpn(path, code string) {
	if code == "" {
		if c.rules.requires(FieldICPN) {
			c.missing(path, FieldICPN, "ICPN is required by profile "+c.rules.Profile)
		}
		return
	}
	if !icpnPattern.MatchString(code) {
		c.add(ddexerrors.Newf(ddexerrors.CodeInvalidFormat, "ICPN %q must have 12 or 13 digits", code).WithSubject(code), path)
		return
	}
	if !GTINCheck(code) {
		c.add(ddexerrors.Newf(ddexerrors.CodeInvalidChecksum, "ICPN %q has a wrong check digit", code).
			WithSubject(code).
			WithHint("the last digit is the GTIN mod-10 check digit"), path)
	}
}

func (c *checker) profile(path string, rel *model.Release, kinds map[string]string) {
	r := c.rules
	if len(r.ReleaseTypes) > 0 && rel.Type != "" && !slices.Contains(r.ReleaseTypes, rel.Type) {
		c.add(ddexerrors.Newf(ddexerrors.CodeProfileConstraint, "release type %s is not allowed by profile %s", rel.Type, r.Profile).
			WithSubject(rel.Type), path+"/ReleaseType")
	}
	n := len(rel.ResourceRefs)
	if r.MinResources > 0 && n < r.MinResources {
		c.add(ddexerrors.Newf(ddexerrors.CodeProfileConstraint, "profile %s requires at least %d resources per release, got %d", r.Profile, r.MinResources, n), path)
	}
	if r.MaxResources > 0 && n > r.MaxResources {
		c.add(ddexerrors.Newf(ddexerrors.CodeProfileConstraint, "profile %s allows at most %d resources per release, got %d", r.Profile, r.MaxResources, n), path)
	}
	if r.ResourceKind == "" {
		return
	}
	for _, ref := range rel.ResourceRefs {
		if kind, ok := kinds[ref.Reference]; ok && kind != r.ResourceKind {
			c.add(ddexerrors.Newf(ddexerrors.CodeProfileConstraint, "profile %s expects %s resources, %s is a %s", r.Profile, r.ResourceKind, ref.Reference, kind).
				WithSubject(ref.Reference), path+"/ReleaseResourceReferenceList")
		}
	}
}

func (c *checker) resources() {
	list := c.root + "/ResourceList"
	for i := range c.msg.Resources {
		r := &c.msg.Resources[i]
		path := list + "/" + step(r.Kind, r.Reference, i)
		switch {
		case r.ISRC != "" && !ValidISRC(r.ISRC):
			c.add(ddexerrors.Newf(ddexerrors.CodeInvalidFormat, "ISRC %q is malformed", r.ISRC).
				WithSubject(r.ISRC).
				WithHint("an ISRC is CC-XXX-YY-NNNNN without hyphens"), path+"/"+dialect.For(c.msg.Version).ResourceIDElement(r.Kind)+"/ISRC")
		case r.ISRC == "" && c.rules.requires(FieldISRC):
			c.missing(path, FieldISRC, "ISRC is required by profile "+c.rules.Profile)
		}
		if r.Duration != "" {
			if _, err := value.ParseDuration(r.Duration); err != nil {
				c.add(ddexerrors.Newf(ddexerrors.CodeInvalidFormat, "duration %q is not an ISO 8601 duration", r.Duration).WithSubject(r.Duration), path+"/Duration")
			}
		} else if c.rules.requires(FieldDuration) {
			c.missing(path+"/Duration", FieldDuration, "duration is required by profile "+c.rules.Profile)
		}
		if r.Title.Text == "" {
			c.missingWarn(path+"/ReferenceTitle/TitleText", "TitleText", "resource "+r.Reference+" has no title")
		}
	}
}

func (c *checker) deals() {
	list := c.root + "/DealList"
	if len(c.msg.Deals) == 0 && c.rules.requires(FieldDeal) {
		c.missing(list, FieldDeal, "profile "+c.rules.Profile+" requires at least one deal")
	}
	for i := range c.msg.Deals {
		d := &c.msg.Deals[i]
		path := list + "/" + step("Deal", d.Reference, i)
		if c.rules.requires(FieldTerritory) && len(d.Territories) == 0 {
			c.missing(path+"/DealTerms/TerritoryCode", FieldTerritory, "deal territory is required by profile "+c.rules.Profile)
		}
		c.territories(path+"/DealTerms/TerritoryCode", d.Territories)
		c.territories(path+"/DealTerms/ExcludedTerritoryCode", d.ExcludedTerritories)
		c.period(path+"/DealTerms/ValidityPeriod", d.Validity)
	}
}

func (c *checker) period(path string, p model.Period) {
	start, okStart := c.date(path+"/StartDate", p.Start)
	end, okEnd := c.date(path+"/EndDate", p.End)
	if okStart && okEnd && end.Before(start) {
		c.add(ddexerrors.Newf(ddexerrors.CodeInvalidDateOrder, "validity ends %s before it starts %s", p.End, p.Start).
			WithSubject(p.End), path)
	}
}

func (c *checker) territories(path string, codes []string) {
	for _, t := range codes {
		switch {
		case !ValidTerritory(t):
			c.add(ddexerrors.Warnf(ddexerrors.CodeInvalidFormat, "territory code %q is not ISO 3166-1 alpha-2", t).WithSubject(t), path)
		case len(c.rules.Territories) > 0 && !slices.Contains(c.rules.Territories, t):
			c.add(ddexerrors.Newf(ddexerrors.CodeProfileConstraint, "territory %s is not allowed by profile %s", t, c.rules.Profile).WithSubject(t), path)
		}
	}
}

func hasArtist(artists []model.Artist) bool {
	for _, a := range artists {
		if a.Name != "" || a.PartyReference != "" {
			return true
		}
	}
	return false
}

func hasLabel(details []model.TerritoryDetails) bool {
	for _, d := range details {
		if d.LabelName != "" {
			return true
		}
	}
	return false
}

// date parses an optional date leaf, reporting a malformed value.
func (c *checker) date(path, lexical string) (time.Time, bool) {
	if lexical == "" {
		return time.Time{}, false
	}
	t, err := value.ParseDate(lexical)
	if err != nil {
		c.add(ddexerrors.Newf(ddexerrors.CodeInvalidFormat, "date %q is not YYYY-MM-DD", lexical).WithSubject(lexical), path)
		return time.Time{}, false
	}
	return t, true
}
