package parser

import (
	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/internal/value"
	"github.com/daddykev/ddex-suite/model"
	"github.com/daddykev/ddex-suite/pkg/xmlstream"
)

func (m *mapper) message(root *cursor) {
	defer root.close()
	msg := m.msg
	msg.SchemaVersionID = root.attr("MessageSchemaVersionId")
	msg.Language = root.attr("LanguageAndScriptCode")
	msg.Profile = root.attr("ReleaseProfileVersionId")
	msg.SchemaLocation = root.attrNS(xmlstream.XSINamespace, "schemaLocation")
	if root.el.Name.Local == model.Takedown.RootElement() {
		msg.Type = model.Takedown
	}

	if h := root.group("MessageHeader"); h != nil {
		m.header(h)
	}
	msg.UpdateIndicator = root.leaf("UpdateIndicator")
	if msg.Type != model.Takedown && msg.UpdateIndicator == model.UpdateIndicatorUpdate {
		msg.Type = model.Update
	}
	if l := root.group("PartyList"); l != nil {
		for _, p := range l.groups("Party") {
			msg.Parties = append(msg.Parties, m.party(p))
		}
		l.close()
	}
	if l := root.group("ResourceList"); l != nil {
		for _, r := range l.groups(dialect.ResourceKinds...) {
			msg.Resources = append(msg.Resources, m.resource(r))
		}
		l.close()
	}
	if l := root.group("ReleaseList"); l != nil {
		for _, r := range l.groups("Release") {
			msg.Releases = append(msg.Releases, m.release(r))
		}
		l.close()
	}
	if l := root.group("DealList"); l != nil {
		for _, rd := range l.groups("ReleaseDeal") {
			msg.Deals = append(msg.Deals, m.releaseDeal(rd)...)
		}
		l.close()
	}
}

func (m *mapper) header(h *cursor) {
	defer h.close()
	msg := m.msg
	msg.ThreadID = h.leaf("MessageThreadId")
	msg.ID = h.leaf("MessageId")
	if s := h.group("MessageSender"); s != nil {
		msg.Sender = m.messageParty(s)
	}
	if r := h.group("MessageRecipient"); r != nil {
		msg.Recipient = m.messageParty(r)
	}
	// an unparseable timestamp stays in the document as a fragment
	if t := h.take(func(e *ast.Element) bool {
		_, _, err := value.ParseDateTime(e.Text())
		return err == nil
	}, "MessageCreatedDateTime"); t != nil {
		msg.CreatedAt, _, _ = value.ParseDateTime(t.text())
	}
	msg.ControlType = h.leaf("MessageControlType")
}

func (m *mapper) messageParty(c *cursor) model.MessageParty {
	defer c.close()
	var p model.MessageParty
	p.IDs = identifiers(c, "PartyId")
	p.Names = m.names(c)
	p.TradingName = c.leaf("TradingName")
	return p
}

func identifiers(c *cursor, local string) []model.Identifier {
	var out []model.Identifier
	for _, n := range c.leafNodes(local) {
		ns := n.attr("Namespace")
		out = append(out, model.Identifier{Namespace: ns, Value: n.text()})
	}
	return out
}

func (m *mapper) names(c *cursor) []model.LocalizedString {
	var out []model.LocalizedString
	for _, n := range c.groups("PartyName") {
		lang := n.attr("LanguageAndScriptCode")
		out = append(out, model.LocalizedString{Text: n.leaf("FullName"), Language: lang})
		n.close()
	}
	return out
}

func (m *mapper) party(c *cursor) model.Party {
	defer c.close()
	return model.Party{
		Reference: c.leaf("PartyReference"),
		IDs:       identifiers(c, "PartyId"),
		Names:     m.names(c),
	}
}

func (m *mapper) title(c *cursor) model.Title {
	t := c.group("ReferenceTitle")
	if t == nil {
		return model.Title{}
	}
	defer t.close()
	return model.Title{
		Language: t.attr("LanguageAndScriptCode"),
		Text:     t.leaf("TitleText"),
		Subtitle: t.leaf("SubTitle"),
	}
}

func (m *mapper) artists(c *cursor) []model.Artist {
	var out []model.Artist
	for _, a := range c.groups("DisplayArtist") {
		artist := model.Artist{PartyReference: a.leaf("ArtistPartyReference")}
		if n := a.group("PartyName"); n != nil {
			artist.Name = n.leaf("FullName")
			n.close()
		}
		artist.Role = a.leaf("DisplayArtistRole")
		a.close()
		out = append(out, artist)
	}
	return out
}

func (m *mapper) genres(c *cursor) []model.Genre {
	var out []model.Genre
	for _, g := range c.groups("Genre") {
		out = append(out, model.Genre{Text: g.leaf("GenreText"), Sub: g.leaf("SubGenre")})
		g.close()
	}
	return out
}

func (m *mapper) resource(c *cursor) model.Resource {
	defer c.close()
	kind := c.el.Name.Local
	r := model.Resource{Kind: kind}
	r.Reference = c.leaf("ResourceReference")
	r.Type = c.leaf(dialect.TypeElement(kind))
	if ids := c.group(m.schema.ResourceIDElement(kind)); ids != nil {
		r.ISRC = ids.leaf("ISRC")
		r.ProprietaryIDs = identifiers(ids, "ProprietaryId")
		ids.close()
	}
	r.Title = m.title(c)
	r.DisplayArtists = m.artists(c)
	r.Duration = c.leaf("Duration")
	if td := c.group("TechnicalDetails"); td != nil {
		for d := td.take(leafElement, td.childNames()...); d != nil; d = td.take(leafElement, td.childNames()...) {
			r.TechnicalDetails = append(r.TechnicalDetails, model.Detail{Name: d.el.Name.Local, Value: d.text()})
		}
		td.close()
	}
	return r
}

// leafElement accepts an element with text and no element children.
func leafElement(e *ast.Element) bool { return !e.HasElementChildren() && hasText(e) }

// childNames lists the local names of unconsumed element children.
func (c *cursor) childNames() []string {
	var out []string
	for i, n := range c.el.Children {
		if e, ok := n.(*ast.Element); ok && !c.used[i] {
			out = append(out, e.Name.Local)
		}
	}
	return out
}

func (m *mapper) release(c *cursor) model.Release {
	defer c.close()
	rel := model.Release{}
	rel.Reference = c.leaf("ReleaseReference")
	rel.Type = c.leaf("ReleaseType")
	if id := c.group("ReleaseId"); id != nil {
		rel.GRid = id.leaf("GRid")
		rel.ICPN = id.leaf("ICPN")
		rel.ProprietaryIDs = identifiers(id, "ProprietaryId")
		id.close()
	}
	rel.Title = m.title(c)
	rel.DisplayArtists = m.artists(c)
	rel.Genres = m.genres(c)
	rel.ReleaseDate = c.leaf("ReleaseDate")
	rel.Territories = c.leaves("TerritoryCode")
	rel.ExcludedTerritories = c.leaves("ExcludedTerritoryCode")
	if l := c.group("ReleaseResourceReferenceList"); l != nil {
		for _, n := range l.leafNodes("ReleaseResourceReference") {
			typ := n.attr("ReleaseResourceType")
			rel.ResourceRefs = append(rel.ResourceRefs, model.ResourceRef{Type: typ, Reference: n.text()})
		}
		l.close()
	}
	for _, r := range c.groups("RelatedRelease") {
		rel.Related = append(rel.Related, model.RelatedRelease{
			Type:      r.leaf("ReleaseRelationshipType"),
			Reference: r.leaf("ReleaseReference"),
		})
		r.close()
	}
	for _, d := range c.groups("ReleaseDetailsByTerritory") {
		rel.Details = append(rel.Details, model.TerritoryDetails{
			Territories:         d.leaves("TerritoryCode"),
			ExcludedTerritories: d.leaves("ExcludedTerritoryCode"),
			DisplayArtistName:   d.leaf("DisplayArtistName"),
			LabelName:           d.leaf("LabelName"),
			Genres:              m.genres(d),
			OriginalReleaseDate: d.leaf("OriginalReleaseDate"),
		})
		d.close()
	}
	return rel
}

// releaseDeal expands a ReleaseDeal into one Deal per Deal element, each
// carrying the shared release references and the block number. A
// ReleaseDeal without deals becomes a single Deal with references only.
func (m *mapper) releaseDeal(c *cursor) []model.Deal {
	defer c.close()
	m.blocks++
	refs := c.leaves("DealReleaseReference")
	var out []model.Deal
	for _, d := range c.groups("Deal") {
		out = append(out, m.deal(d, refs))
	}
	if len(out) == 0 {
		out = append(out, model.Deal{ReleaseReferences: refs, Block: m.blocks})
	}
	return out
}

func (m *mapper) deal(c *cursor, refs []string) model.Deal {
	defer c.close()
	d := model.Deal{ReleaseReferences: append([]string(nil), refs...), Block: m.blocks}
	d.Reference = c.leaf("DealReference")
	t := c.group("DealTerms")
	if t == nil {
		return d
	}
	defer t.close()
	d.CommercialModels = t.leaves("CommercialModelType")
	if m.schema.UsageWrapped() {
		for _, u := range t.groups("Usage") {
			d.UseTypes = append(d.UseTypes, u.leaves("UseType")...)
			u.close()
		}
	} else {
		d.UseTypes = t.leaves("UseType")
	}
	d.Territories = t.leaves("TerritoryCode")
	d.ExcludedTerritories = t.leaves("ExcludedTerritoryCode")
	if v := t.group("ValidityPeriod"); v != nil {
		d.Validity = model.Period{Start: v.leaf("StartDate"), End: v.leaf("EndDate")}
		v.close()
	}
	return d
}
