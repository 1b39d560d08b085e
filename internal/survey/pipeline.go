package survey

import (
	"log/slog"
	"time"

	"golang.org/x/text/language"
)

// ReportState tells the caller whether a Report has a frequency table
type ReportState string

const (
	StateOK    ReportState = "ok"
	StateEmpty ReportState = "empty"
)

// Reasons attached to an empty Report
const (
	ReasonNoMatchingRecords      = "no_matching_records"
	ReasonNoAffirmativeResponses = "no_affirmative_responses"
)

// Config configures a Pipeline. Zero fields select the package defaults.
type Config struct {
	AffirmativeToken     string
	Delimiter            string
	NullTokens           []string
	DateLayouts          []string
	Location             *time.Location
	PainFlagPosition     int
	PainLocationPosition int
	SectorAliases        map[string]string
	RegionAliases        map[string]string
	Acronyms             []string
	Language             language.Tag
	Clock                func() time.Time
}

// DefaultConfig returns the configuration of the standard survey form
func DefaultConfig() Config {
	return Config{
		AffirmativeToken:     DefaultAffirmativeToken,
		Delimiter:            DefaultDelimiter,
		PainFlagPosition:     4,
		PainLocationPosition: 5,
	}
}

// Summary holds the headline counts of a Report
type Summary struct {
	Filtered        int     `json:"filtered"`
	Affirmative     int     `json:"affirmative"`
	AffirmativeRate float64 `json:"affirmative_rate"`
}

// Advisory carries the plain parameters handed to an advisory text writer.
type Advisory struct {
	TopRegion string `json:"top_region"`
	TopCount  int    `json:"top_count"`
	Sector    string `json:"sector,omitempty"`
}

// Report is the outcome of one render cycle. An empty Report is a normal
// state: callers branch on State instead of charting nothing.
type Report struct {
	State       ReportState     `json:"state"`
	EmptyReason string          `json:"empty_reason,omitempty"`
	Criteria    FilterCriteria  `json:"criteria"`
	Summary     Summary         `json:"summary"`
	Frequency   FrequencyResult `json:"frequency"`
	Advisory    *Advisory       `json:"advisory,omitempty"`
}

// Empty reports whether the report has no frequency table
func (r Report) Empty() bool {
	return r.State == StateEmpty
}

// Pipeline wires the survey stages together. It is stateless after
// construction and safe for concurrent use.
type Pipeline struct {
	resolver   *SchemaResolver
	normalizer *Normalizer
	bucketizer *Bucketizer
	exploder   *Exploder
	aggregator *Aggregator
	clock      func() time.Time
	logger     *slog.Logger
}

// NewPipeline creates a Pipeline from cfg
func NewPipeline(cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	// position 0 belongs to the timestamp
	if cfg.PainFlagPosition <= 0 {
		cfg.PainFlagPosition = 4
	}
	if cfg.PainLocationPosition <= 0 {
		cfg.PainLocationPosition = 5
	}
	normalizer := NewNormalizer(NormalizerConfig{
		AffirmativeToken: cfg.AffirmativeToken,
		NullTokens:       cfg.NullTokens,
		SectorAliases:    cfg.SectorAliases,
		RegionAliases:    cfg.RegionAliases,
		Acronyms:         cfg.Acronyms,
		Language:         cfg.Language,
	})
	exploder := NewExploder(cfg.Delimiter, normalizer)
	return &Pipeline{
		resolver:   NewSchemaResolver(DefaultRules(cfg.PainFlagPosition, cfg.PainLocationPosition)),
		normalizer: normalizer,
		bucketizer: NewBucketizer(cfg.DateLayouts, cfg.Location),
		exploder:   exploder,
		aggregator: NewAggregator(exploder),
		clock:      cfg.Clock,
		logger:     logger.With(slog.String("component", "survey_pipeline")),
	}
}

// Normalizer returns the pipeline's value normalizer
func (p *Pipeline) Normalizer() *Normalizer {
	return p.normalizer
}

// BuildSnapshot resolves the schema of table and normalizes every row. Rows
// whose timestamp cannot be parsed are dropped and counted.
func (p *Pipeline) BuildSnapshot(table *RawTable) (*Snapshot, error) {
	if table == nil {
		table = &RawTable{}
	}
	schema, err := p.resolver.Resolve(table.Headers)
	if err != nil {
		return nil, err
	}
	for _, w := range schema.Warnings {
		p.logger.Warn("schema warning", slog.String("source", table.Source), slog.String("warning", w))
	}

	records := make([]*NormalizedRecord, 0, table.Len())
	dropped := 0
	for i := 0; i < table.Len(); i++ {
		rec, err := p.normalize(table.Record(i), schema)
		if err != nil {
			dropped++
			p.logger.Debug("dropping row", slog.Int("row", i+1), slog.String("error", err.Error()))
			continue
		}
		records = append(records, rec)
	}

	var sectorRows []ExplodedRecord
	if schema.Has(RoleSector) {
		sectorRows = p.exploder.Explode(records, RoleSector)
	}

	snap := &Snapshot{
		Source:     table.Source,
		LoadedAt:   p.clock(),
		Schema:     schema,
		Records:    records,
		SectorRows: sectorRows,
		Rows:       table.Len(),
		Dropped:    dropped,
		options:    buildOptions(records, sectorRows, schema),
		painValues: countPainValues(records),
	}

	p.logger.Info("snapshot built",
		slog.String("source", table.Source),
		slog.Int("rows", snap.Rows),
		slog.Int("kept", len(records)),
		slog.Int("dropped", dropped))

	return snap, nil
}

func (p *Pipeline) normalize(raw RawRecord, schema SchemaMap) (*NormalizedRecord, error) {
	tsCol, _ := schema.Column(RoleTimestamp)
	ts, err := p.bucketizer.Parse(raw.Value(tsCol))
	if err != nil {
		return nil, err
	}

	rec := &NormalizedRecord{
		Row:       raw.Index + 1,
		Timestamp: ts,
		Month:     Bucket(ts),
	}
	rec.Sector = p.cell(raw, schema, RoleSector)
	rec.Leader = p.cell(raw, schema, RoleLeader)
	rec.PainFlag = p.cell(raw, schema, RolePainFlag)
	rec.PainLocation = p.cell(raw, schema, RolePainLocation)
	rec.Affirmative = p.normalizer.Affirmative(rec.PainFlag)
	return rec, nil
}

func (p *Pipeline) cell(raw RawRecord, schema SchemaMap, role Role) string {
	col, ok := schema.Column(role)
	if !ok {
		return ""
	}
	v, _ := p.normalizer.Canonical(role, raw.Value(col))
	return v
}

// Run filters the snapshot by criteria and aggregates pain regions. A sector
// constraint is evaluated on the sector-exploded rows, which are then folded
// back into distinct responses before counting.
func (p *Pipeline) Run(snap *Snapshot, criteria FilterCriteria) Report {
	engine := NewFilterEngine(p.normalizer, snap.Schema)
	criteria = engine.Canonicalize(criteria)
	preds := engine.Predicates(criteria)

	rows := Passthrough(snap.Records)
	if criteria.Sector != "" {
		rows = snap.SectorRows
	}
	filtered := Distinct(Apply(rows, preds...))

	report := Report{
		Criteria: criteria,
		Summary:  Summary{Filtered: len(filtered)},
	}
	if len(filtered) == 0 {
		report.State = StateEmpty
		report.EmptyReason = ReasonNoMatchingRecords
		return report
	}

	freq, ok := p.aggregator.Aggregate(filtered)
	if !ok {
		report.State = StateEmpty
		report.EmptyReason = ReasonNoAffirmativeResponses
		return report
	}

	report.State = StateOK
	report.Frequency = freq
	report.Summary.Affirmative = freq.Affirmative
	report.Summary.AffirmativeRate = float64(freq.Affirmative) / float64(len(filtered))
	if top, found := freq.Top(); found {
		report.Advisory = &Advisory{TopRegion: top.Region, TopCount: top.Count, Sector: criteria.Sector}
	}
	return report
}
