// Package generator builds the serialization tree of a message. Schema
// children are emitted in the dialect's child order; sidecar artifacts are
// put back afterwards, anchored by keyed path.
package generator

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/model"
	"github.com/daddykev/ddex-suite/pkg/xmlstream"
	"github.com/daddykev/ddex-suite/pkg/xmltext"
)

// Options configures generation.
type Options struct {
	// Limits bound the parsing of sidecar fragments.
	Limits xmltext.Options
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

type gen struct {
	schema    *dialect.Schema
	ns        string
	prefix    string
	qualified bool
	groups    map[*ast.Element]bool
}

// Generate builds the tree of msg. The message is not modified.
func Generate(ctx context.Context, msg *model.Message, opts Options) (*ast.Document, error) {
	version := msg.Version
	if version == dialect.VersionUnknown {
		version = dialect.Latest
	}
	sc := msg.Sidecar
	g := &gen{schema: dialect.For(version), groups: make(map[*ast.Element]bool)}
	if sc == nil || !sc.Unqualified {
		g.ns = version.Namespace()
		g.prefix = "ern"
		if p, ok := sc.PreferredPrefix(g.ns); ok {
			g.prefix = p
		}
	}
	g.qualified = sc != nil && sc.Qualified && g.ns != ""

	root := g.root(msg, version)
	g.sortChildren(root)
	doc := &ast.Document{Root: root}
	if sc != nil {
		if err := reinsert(ctx, doc, g.schema, sc, opts); err != nil {
			return nil, err
		}
	}
	g.prune(root)
	opts.logger().Debug("generated tree",
		zap.String("id", msg.ID),
		zap.Stringer("version", version),
		zap.Bool("sidecar", sc != nil))
	return doc, nil
}

// element creates a schema element, qualified when the source document
// qualified its children.
func (g *gen) element(local string) *ast.Element {
	e := ast.NewElement(local)
	if g.qualified {
		e.Name.Space, e.Prefix = g.ns, g.prefix
	}
	return e
}

// group appends a container element. Containers left without element
// children are removed once the sidecar is applied.
func (g *gen) group(parent *ast.Element, local string) *ast.Element {
	e := g.element(local)
	g.groups[e] = true
	parent.Append(e)
	return e
}

// leaf appends an element holding text. Empty text adds nothing.
func (g *gen) leaf(parent *ast.Element, local, text string) *ast.Element {
	if text == "" {
		return nil
	}
	e := g.element(local)
	e.Children = []ast.Node{&ast.Text{Value: text}}
	parent.Append(e)
	return e
}

func (g *gen) leaves(parent *ast.Element, local string, texts []string) {
	for _, t := range texts {
		g.leaf(parent, local, t)
	}
}

func (g *gen) root(msg *model.Message, version dialect.Version) *ast.Element {
	root := &ast.Element{
		Name:   xmlstream.QName{Space: g.ns, Local: msg.Type.RootElement()},
		Prefix: g.prefix,
	}
	if g.ns == "" {
		root.Prefix = ""
	} else {
		root.Decls = append(root.Decls, xmlstream.NamespaceDecl{Prefix: root.Prefix, URI: g.ns})
	}
	g.groups[root] = false

	schemaVersion := msg.SchemaVersionID
	if schemaVersion == "" && msg.Sidecar == nil {
		schemaVersion = version.SchemaVersionID()
	}
	setAttr(root, "MessageSchemaVersionId", schemaVersion)
	setAttr(root, "LanguageAndScriptCode", msg.Language)
	setAttr(root, "ReleaseProfileVersionId", msg.Profile)
	if msg.SchemaLocation != "" {
		xsi := "xsi"
		if p, ok := msg.Sidecar.PreferredPrefix(xmlstream.XSINamespace); ok && p != "" {
			xsi = p
		}
		root.Attrs = append(root.Attrs, ast.Attr{
			Name:   xmlstream.QName{Space: xmlstream.XSINamespace, Local: "schemaLocation"},
			Prefix: xsi,
			Value:  msg.SchemaLocation,
		})
		root.Decls = append(root.Decls, xmlstream.NamespaceDecl{Prefix: xsi, URI: xmlstream.XSINamespace})
	}

	g.header(root, msg)
	indicator := msg.UpdateIndicator
	if indicator == "" && msg.Type == model.Update {
		indicator = model.UpdateIndicatorUpdate
	}
	g.leaf(root, "UpdateIndicator", indicator)

	parties := g.group(root, "PartyList")
	for i := range msg.Parties {
		g.party(parties, &msg.Parties[i])
	}
	resources := g.group(root, "ResourceList")
	for i := range msg.Resources {
		g.resource(resources, &msg.Resources[i])
	}
	releases := g.group(root, "ReleaseList")
	for i := range msg.Releases {
		g.release(releases, &msg.Releases[i])
	}
	deals := g.group(root, "DealList")
	for _, run := range dealRuns(msg.Deals) {
		g.releaseDeal(deals, run)
	}
	return root
}

func setAttr(e *ast.Element, local, v string) {
	if v != "" {
		e.SetAttr(local, v)
	}
}

func (g *gen) header(root *ast.Element, msg *model.Message) {
	h := g.group(root, "MessageHeader")
	g.leaf(h, "MessageThreadId", msg.ThreadID)
	g.leaf(h, "MessageId", msg.ID)
	g.messageParty(g.group(h, "MessageSender"), msg.Sender)
	g.messageParty(g.group(h, "MessageRecipient"), msg.Recipient)
	if !msg.CreatedAt.IsZero() {
		g.leaf(h, "MessageCreatedDateTime", msg.CreatedAt.Format(time.RFC3339Nano))
	}
	g.leaf(h, "MessageControlType", msg.ControlType)
}

func (g *gen) messageParty(e *ast.Element, p model.MessageParty) {
	g.identifiers(e, "PartyId", p.IDs)
	g.names(e, p.Names)
	g.leaf(e, "TradingName", p.TradingName)
}

func (g *gen) identifiers(parent *ast.Element, local string, ids []model.Identifier) {
	for _, id := range ids {
		if l := g.leaf(parent, local, id.Value); l != nil {
			setAttr(l, "Namespace", id.Namespace)
		}
	}
}

func (g *gen) names(parent *ast.Element, names []model.LocalizedString) {
	for _, n := range names {
		e := g.group(parent, "PartyName")
		setAttr(e, "LanguageAndScriptCode", n.Language)
		g.leaf(e, "FullName", n.Text)
	}
}

func (g *gen) party(list *ast.Element, p *model.Party) {
	e := g.group(list, "Party")
	g.leaf(e, "PartyReference", p.Reference)
	g.identifiers(e, "PartyId", p.IDs)
	g.names(e, p.Names)
}

func (g *gen) title(parent *ast.Element, t model.Title) {
	e := g.group(parent, "ReferenceTitle")
	setAttr(e, "LanguageAndScriptCode", t.Language)
	g.leaf(e, "TitleText", t.Text)
	g.leaf(e, "SubTitle", t.Subtitle)
}

func (g *gen) artists(parent *ast.Element, artists []model.Artist) {
	for _, a := range artists {
		e := g.group(parent, "DisplayArtist")
		g.leaf(e, "ArtistPartyReference", a.PartyReference)
		g.leaf(g.group(e, "PartyName"), "FullName", a.Name)
		g.leaf(e, "DisplayArtistRole", a.Role)
	}
}

func (g *gen) genres(parent *ast.Element, genres []model.Genre) {
	for _, gr := range genres {
		e := g.group(parent, "Genre")
		g.leaf(e, "GenreText", gr.Text)
		g.leaf(e, "SubGenre", gr.Sub)
	}
}

func (g *gen) resource(list *ast.Element, r *model.Resource) {
	kind := r.Kind
	if kind == "" {
		kind = dialect.ResourceKinds[0]
	}
	e := g.group(list, kind)
	g.leaf(e, "ResourceReference", r.Reference)
	g.leaf(e, dialect.TypeElement(kind), r.Type)
	ids := g.group(e, g.schema.ResourceIDElement(kind))
	g.leaf(ids, "ISRC", r.ISRC)
	g.identifiers(ids, "ProprietaryId", r.ProprietaryIDs)
	g.title(e, r.Title)
	g.artists(e, r.DisplayArtists)
	g.leaf(e, "Duration", r.Duration)
	td := g.group(e, "TechnicalDetails")
	for _, d := range r.TechnicalDetails {
		g.leaf(td, d.Name, d.Value)
	}
}

func (g *gen) release(list *ast.Element, rel *model.Release) {
	e := g.group(list, "Release")
	g.leaf(e, "ReleaseReference", rel.Reference)
	g.leaf(e, "ReleaseType", rel.Type)
	id := g.group(e, "ReleaseId")
	g.leaf(id, "GRid", rel.GRid)
	g.leaf(id, "ICPN", rel.ICPN)
	g.identifiers(id, "ProprietaryId", rel.ProprietaryIDs)
	g.title(e, rel.Title)
	g.artists(e, rel.DisplayArtists)
	g.genres(e, rel.Genres)
	g.leaf(e, "ReleaseDate", rel.ReleaseDate)
	g.leaves(e, "TerritoryCode", rel.Territories)
	g.leaves(e, "ExcludedTerritoryCode", rel.ExcludedTerritories)
	refs := g.group(e, "ReleaseResourceReferenceList")
	for _, ref := range rel.ResourceRefs {
		if l := g.leaf(refs, "ReleaseResourceReference", ref.Reference); l != nil {
			setAttr(l, "ReleaseResourceType", ref.Type)
		}
	}
	for _, r := range rel.Related {
		re := g.group(e, "RelatedRelease")
		g.leaf(re, "ReleaseRelationshipType", r.Type)
		g.leaf(re, "ReleaseReference", r.Reference)
	}
	for _, d := range rel.Details {
		de := g.group(e, "ReleaseDetailsByTerritory")
		g.leaves(de, "TerritoryCode", d.Territories)
		g.leaves(de, "ExcludedTerritoryCode", d.ExcludedTerritories)
		g.leaf(de, "DisplayArtistName", d.DisplayArtistName)
		g.leaf(de, "LabelName", d.LabelName)
		g.genres(de, d.Genres)
		g.leaf(de, "OriginalReleaseDate", d.OriginalReleaseDate)
	}
}

// dealRuns groups adjacent deals that share their release references and
// their source block.
func dealRuns(deals []model.Deal) [][]*model.Deal {
	var out [][]*model.Deal
	for i := range deals {
		d := &deals[i]
		if n := len(out); n > 0 && out[n-1][0].Block == d.Block &&
			slices.Equal(out[n-1][0].ReleaseReferences, d.ReleaseReferences) {
			out[n-1] = append(out[n-1], d)
			continue
		}
		out = append(out, []*model.Deal{d})
	}
	return out
}

func (g *gen) releaseDeal(list *ast.Element, run []*model.Deal) {
	e := g.group(list, "ReleaseDeal")
	g.leaves(e, "DealReleaseReference", run[0].ReleaseReferences)
	for _, d := range run {
		g.deal(e, d)
	}
}

func (g *gen) deal(parent *ast.Element, d *model.Deal) {
	e := g.group(parent, "Deal")
	g.leaf(e, "DealReference", d.Reference)
	t := g.group(e, "DealTerms")
	g.leaves(t, "CommercialModelType", d.CommercialModels)
	if g.schema.UsageWrapped() {
		g.leaves(g.group(t, "Usage"), "UseType", d.UseTypes)
	} else {
		g.leaves(t, "UseType", d.UseTypes)
	}
	g.leaves(t, "TerritoryCode", d.Territories)
	g.leaves(t, "ExcludedTerritoryCode", d.ExcludedTerritories)
	v := g.group(t, "ValidityPeriod")
	g.leaf(v, "StartDate", d.Validity.Start)
	g.leaf(v, "EndDate", d.Validity.End)
}

// sortChildren puts generated children into the dialect's child order.
func (g *gen) sortChildren(e *ast.Element) {
	if order, ok := g.schema.ChildOrder(e.Name.Local); ok {
		rank := func(n ast.Node) int {
			if c, ok := n.(*ast.Element); ok {
				if i := slices.Index(order, c.Name.Local); i >= 0 {
					return i
				}
			}
			return len(order)
		}
		slices.SortStableFunc(e.Children, func(a, b ast.Node) int { return rank(a) - rank(b) })
	}
	for _, c := range e.Elements() {
		g.sortChildren(c)
	}
}

// prune removes generated containers that ended up without element
// children, deepest first.
func (g *gen) prune(e *ast.Element) {
	kept := e.Children[:0]
	for _, n := range e.Children {
		if c, ok := n.(*ast.Element); ok {
			g.prune(c)
			if g.groups[c] && !c.HasElementChildren() {
				continue
			}
		}
		kept = append(kept, n)
	}
	clear(e.Children[len(kept):])
	e.Children = kept
}
