package stableid

import (
	"strconv"

	"github.com/daddykev/ddex-suite/internal/value"
	"github.com/daddykev/ddex-suite/model"
)

// Assign fills empty references of msg, except for kinds passed to Skip.
// Existing references are kept and reserved. Entities are visited in a fixed order so sequential and
// stable-hash output does not depend on anything but msg.
func (g *Generator) Assign(msg *model.Message) {
	for _, e := range msg.Entities() {
		g.Reserve(e.Ref())
	}
	g.Reserve(msg.ID)

	if msg.ID == "" && !g.skip[Message] {
		sender := firstID(msg.Sender.IDs)
		msg.ID = g.Next(Message, sender.Namespace, sender.Value, msg.CreatedAt.UTC().Format("2006-01-02"))
	}
	for i := range msg.Parties {
		p := &msg.Parties[i]
		if p.Reference != "" || g.skip[Party] {
			continue
		}
		id := firstID(p.IDs)
		name := ""
		if len(p.Names) > 0 {
			name = p.Names[0].Text
		}
		p.Reference = g.Next(Party, id.Namespace+":"+id.Value, name)
	}
	isrcs := make(map[string]string, len(msg.Resources))
	for i := range msg.Resources {
		r := &msg.Resources[i]
		if r.Reference == "" && !g.skip[Resource] {
			r.Reference = g.Next(Resource, ResourceFields(r)...)
		}
		isrcs[r.Reference] = r.ISRC
	}
	for i := range msg.Releases {
		rel := &msg.Releases[i]
		if rel.Reference != "" || g.skip[Release] {
			continue
		}
		codes := make([]string, 0, len(rel.ResourceRefs))
		for _, ref := range rel.ResourceRefs {
			codes = append(codes, isrcs[ref.Reference])
		}
		rel.Reference = g.Next(Release, rel.ICPN, rel.Type, Sorted(codes), Sorted(rel.Territories))
	}
	for i := range msg.Deals {
		d := &msg.Deals[i]
		if d.Reference != "" || g.skip[Deal] {
			continue
		}
		d.Reference = g.Next(Deal, Sorted(d.CommercialModels), Sorted(d.Territories))
	}
}

// ResourceFields returns the stable-hash inputs of r: recording code,
// duration in seconds and the optional content hash.
func ResourceFields(r *model.Resource) []string {
	seconds := ""
	if d, err := value.ParseDuration(r.Duration); err == nil {
		seconds = strconv.FormatInt(d.TotalSeconds(), 10)
	}
	fields := []string{r.ISRC, seconds}
	if h, ok := r.TechnicalDetails.Get(model.ContentHashDetail); ok {
		fields = append(fields, h)
	}
	return fields
}

func firstID(ids []model.Identifier) model.Identifier {
	if len(ids) == 0 {
		return model.Identifier{}
	}
	return ids[0]
}
