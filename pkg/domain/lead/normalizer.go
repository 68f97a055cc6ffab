package lead

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// TimestampLayout is the layout used for every timestamp stamped on a record.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FieldAliases lists the header names that resolve to one canonical field,
// in lookup order.
type FieldAliases struct {
	Field   string
	Aliases []string
}

// DefaultAliases is the header alias table for lead spreadsheets. Matching is
// case and spacing insensitive, so "Company Name", "company_name" and
// "COMPANYNAME" all hit the same alias.
var DefaultAliases = []FieldAliases{
	{Field: FieldName, Aliases: []string{"name", "company name", "company", "business name", "organization", "lead name"}},
	{Field: FieldContactPerson, Aliases: []string{"contact person", "contact name", "contact", "person", "poc"}},
	{Field: FieldDesignation, Aliases: []string{"designation", "title", "job title", "role", "position"}},
	{Field: FieldPhone, Aliases: []string{"phone", "phone number", "mobile", "mobile number", "contact number", "telephone"}},
	{Field: FieldWebsite, Aliases: []string{"website", "website url", "url", "web", "site"}},
	{Field: FieldLinkedIn, Aliases: []string{"linkedin", "linkedin url", "linkedin profile"}},
	{Field: FieldEmail, Aliases: []string{"email", "email address", "e-mail", "mail"}},
	{Field: FieldLocation, Aliases: []string{"location", "city", "address", "region"}},
	{Field: FieldIndustry, Aliases: []string{"industry", "sector", "vertical"}},
	{Field: FieldSize, Aliases: []string{"size", "company size", "employees", "employee count", "headcount"}},
	{Field: FieldSource, Aliases: []string{"source", "lead source", "channel"}},
	{Field: FieldNotes, Aliases: []string{"notes", "note", "remarks", "comments", "comment"}},
	{Field: FieldStatus, Aliases: []string{"status", "lead status", "stage"}},
}

// Result is the outcome of normalizing a batch of rows.
type Result struct {
	Records  []Record
	Rejected int
}

// Normalizer maps raw spreadsheet rows onto canonical records.
type Normalizer struct {
	// Aliases defaults to DefaultAliases when nil.
	Aliases []FieldAliases
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewNormalizer returns a Normalizer using the default alias table.
func NewNormalizer() *Normalizer {
	return &Normalizer{Aliases: DefaultAliases, Now: time.Now}
}

// Normalize converts rows into records. Rows without a resolvable name are
// counted as rejected. When assignee is non-empty every record is stamped as
// assigned to (and by) that identity.
func (n *Normalizer) Normalize(rows []Row, assignee string) Result {
	aliases := n.Aliases
	if aliases == nil {
		aliases = DefaultAliases
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	stamp := now().UTC().Format(TimestampLayout)
	assignee = strings.TrimSpace(assignee)

	var res Result
	for _, row := range rows {
		index := indexRow(row)

		name := resolve(index, aliasesFor(aliases, FieldName))
		if name == "" {
			res.Rejected++
			continue
		}

		rec := make(Record, len(aliases)+4)
		for _, fa := range aliases {
			rec[fa.Field] = resolve(index, fa.Aliases)
		}
		rec[FieldName] = name

		status := strings.ToLower(rec[FieldStatus])
		if status == "" {
			status = DefaultStatus
		}
		rec[FieldStatus] = status
		if field, ok := StatusTimestampField(status); ok {
			rec[field] = stamp
		}

		if assignee != "" {
			rec[FieldAssignedTo] = assignee
			rec[FieldAssignedBy] = assignee
			rec[FieldAssignedAt] = stamp
		}

		res.Records = append(res.Records, rec)
	}
	return res
}

func aliasesFor(table []FieldAliases, field string) []string {
	for _, fa := range table {
		if fa.Field == field {
			return fa.Aliases
		}
	}
	return []string{field}
}

// indexRow keys every non-blank cell by its normalized header. When two
// headers collide the lexically smaller one wins, so the outcome never
// depends on map order.
func indexRow(row Row) map[string]string {
	headers := make([]string, 0, len(row))
	for k := range row {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	index := make(map[string]string, len(row))
	for _, k := range headers {
		v := strings.TrimSpace(row[k])
		if v == "" {
			continue
		}
		key := NormalizeHeader(k)
		if _, exists := index[key]; !exists {
			index[key] = v
		}
	}
	return index
}

func resolve(index map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v, ok := index[NormalizeHeader(alias)]; ok {
			return v
		}
	}
	return ""
}

// NormalizeHeader folds case and drops spacing so that header variants of
// the same alias compare equal.
func NormalizeHeader(h string) string {
	folded := cases.Fold().String(norm.NFC.String(h))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			return -1
		}
		return r
	}, folded)
}
