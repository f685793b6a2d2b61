package schema

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"mercator-hq/tabula/pkg/decision/codec"
)

// GeneratorConfig shapes the tables produced by a Generator.
type GeneratorConfig struct {
	Inputs    int
	Outputs   int
	Rules     int
	HitPolicy HitPolicy

	// DontCareRatio is the probability that a generated cell is "-".
	DontCareRatio float64

	// Vocabulary is the number of distinct strings per string column.
	Vocabulary int
}

// Generator builds random tables and records for benchmarks and property
// tests. It draws from its own source; two generators with the same seed
// produce the same output.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator creates a Generator seeded with seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

var generatedTypes = []codec.TypeRef{
	codec.TypeNumber,
	codec.TypeInteger,
	codec.TypeString,
	codec.TypeBoolean,
	codec.TypeDate,
}

var orderedOps = []string{"", "<", "<=", ">", ">=", "!="}

var epoch2020 = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Table generates a random table.
func (g *Generator) Table(cfg GeneratorConfig) *Table {
	if cfg.Vocabulary <= 0 {
		cfg.Vocabulary = 8
	}
	if cfg.HitPolicy == "" {
		cfg.HitPolicy = HitPolicyCollect
	}

	t := &Table{
		Name:      fmt.Sprintf("generated_%d", g.rnd.IntN(1_000_000)),
		HitPolicy: cfg.HitPolicy,
	}
	for i := 0; i < cfg.Inputs; i++ {
		ref := generatedTypes[g.rnd.IntN(len(generatedTypes))]
		t.Inputs = append(t.Inputs, Clause{Name: fmt.Sprintf("in%d", i), TypeRef: string(ref)})
	}
	for o := 0; o < cfg.Outputs; o++ {
		t.Outputs = append(t.Outputs, Clause{Name: fmt.Sprintf("out%d", o), TypeRef: string(codec.TypeNumber)})
	}
	for r := 0; r < cfg.Rules; r++ {
		rule := Rule{ID: fmt.Sprintf("r%d", r)}
		for _, in := range t.Inputs {
			if g.rnd.Float64() < cfg.DontCareRatio {
				rule.Inputs = append(rule.Inputs, "-")
				continue
			}
			rule.Inputs = append(rule.Inputs, Literal(g.literal(codec.TypeRef(in.TypeRef), cfg.Vocabulary)))
		}
		for range t.Outputs {
			rule.Outputs = append(rule.Outputs, Literal(strconv.Itoa(r)))
		}
		t.Rules = append(t.Rules, rule)
	}
	return t
}

func (g *Generator) literal(ref codec.TypeRef, vocab int) string {
	switch ref {
	case codec.TypeNumber, codec.TypeInteger:
		op := orderedOps[g.rnd.IntN(len(orderedOps))]
		return op + strconv.Itoa(g.rnd.IntN(100))
	case codec.TypeBoolean:
		return strconv.FormatBool(g.rnd.IntN(2) == 1)
	case codec.TypeDate:
		op := orderedOps[g.rnd.IntN(len(orderedOps))]
		d := epoch2020.AddDate(0, 0, g.rnd.IntN(365))
		return op + `date("` + d.Format("2006-01-02") + `")`
	default:
		return `"v` + strconv.Itoa(g.rnd.IntN(vocab)) + `"`
	}
}

// Records generates n records matching the inputs of t. Values are drawn
// from the same ranges as generated literals; roughly one value in twenty is
// nil.
func (g *Generator) Records(t *Table, n int, vocab int) []map[string]any {
	if vocab <= 0 {
		vocab = 8
	}
	out := make([]map[string]any, n)
	for b := range out {
		rec := make(map[string]any, len(t.Inputs))
		for _, in := range t.Inputs {
			if g.rnd.IntN(20) == 0 {
				rec[in.Name] = nil
				continue
			}
			ref, _ := codec.ParseTypeRef(in.TypeRef)
			switch ref {
			case codec.TypeNumber:
				rec[in.Name] = g.rnd.Float64() * 100
			case codec.TypeInteger:
				rec[in.Name] = g.rnd.IntN(100)
			case codec.TypeBoolean:
				rec[in.Name] = g.rnd.IntN(2) == 1
			case codec.TypeDate, codec.TypeDateTime:
				rec[in.Name] = epoch2020.AddDate(0, 0, g.rnd.IntN(365))
			default:
				rec[in.Name] = "v" + strconv.Itoa(g.rnd.IntN(vocab+2))
			}
		}
		out[b] = rec
	}
	return out
}
