package replay

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/okian/inkcheck/pkg/logger"
)

// Profile names.
const (
	ProfileOrganic     = "organic"
	ProfilePasteDump   = "paste_dump"
	ProfileScripted    = "scripted"
	ProfileBurstInsert = "burst_insert"
)

// Profile describes one kind of writer and the risk band its sessions must
// land in under the default thresholds.
type Profile struct {
	Name    string
	MinRisk int
	MaxRisk int
	build   func(r *rand.Rand, id string) Submission
}

// Expects reports whether risk is inside the profile's band.
func (p Profile) Expects(risk int) bool {
	return risk >= p.MinRisk && risk <= p.MaxRisk
}

var profiles = []Profile{ //nolint:gochecknoglobals // fixed catalogue
	{Name: ProfileOrganic, MinRisk: 0, MaxRisk: 29, build: organic},
	{Name: ProfilePasteDump, MinRisk: 60, MaxRisk: 100, build: pasteDump},
	{Name: ProfileScripted, MinRisk: 30, MaxRisk: 100, build: scripted},
	{Name: ProfileBurstInsert, MinRisk: 60, MaxRisk: 100, build: burstInsert},
}

// Profiles returns the profile catalogue.
func Profiles() []Profile {
	return slices.Clone(profiles)
}

// Lookup resolves profile names; an empty list selects every profile.
func Lookup(names []string) ([]Profile, error) {
	if len(names) == 0 {
		return Profiles(), nil
	}
	out := make([]Profile, 0, len(names))
	for _, name := range names {
		i := slices.IndexFunc(profiles, func(p Profile) bool { return p.Name == name })
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
		}
		out = append(out, profiles[i])
	}
	return out, nil
}

// Generate builds one submission. The same seed and index always give the
// same trace; only the session id differs between calls.
func (p Profile) Generate(seed uint64, index int) Submission {
	r := rand.New(rand.NewPCG(seed, uint64(index))) //nolint:gosec // synthetic traffic
	return p.build(r, p.Name+"-"+uuid.NewString())
}

// generateAll creates cfg.Sessions submissions per profile, interleaved.
func generateAll(ctx context.Context, cfg *Config, selected []Profile) ([]Generated, error) {
	total := cfg.Sessions * len(selected)
	logger.Get().Info(ctx, "generating sessions",
		logger.Int("perProfile", cfg.Sessions),
		logger.Int("profiles", len(selected)))

	out := make([]Generated, total)
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}
		p := selected[i%len(selected)]
		out[i] = Generated{Profile: p.Name, Submission: p.Generate(cfg.Seed, i)}
	}
	return out, nil
}

// writer accumulates a trace while tracking the document it produces.
type writer struct {
	r      *rand.Rand
	now    int64
	text   []rune
	events []Event
	keys   int
}

func newWriter(r *rand.Rand) *writer {
	return &writer{r: r, now: 1_700_000_000_000 + r.Int64N(86_400_000)}
}

func (w *writer) key(gap int64, k string) {
	w.now += gap
	w.keys++
	switch k {
	case "Backspace":
		if len(w.text) > 0 {
			w.text = w.text[:len(w.text)-1]
		}
	case "Enter":
		w.text = append(w.text, '\n')
	default:
		r, _ := utf8.DecodeRuneInString(k)
		w.text = append(w.text, r)
	}
	w.events = append(w.events, Event{Type: "key", Time: w.now, Key: k})
}

func (w *writer) paste(gap int64, body string) {
	w.now += gap
	w.text = append(w.text, []rune(body)...)
	n := int64(utf8.RuneCountInString(body))
	words := int64(len(strings.Fields(body)))
	w.events = append(w.events, Event{Type: "paste", Time: w.now, Length: &n, Words: &words})
}

func (w *writer) edit(gap int64, body string) {
	w.now += gap
	w.text = append(w.text, []rune(body)...)
	delta := int64(utf8.RuneCountInString(body))
	total := int64(len(w.text))
	w.events = append(w.events, Event{Type: "edit", Time: w.now, Delta: &delta, TotalLength: &total})
}

// typeWords types n letters with a human rhythm: uneven gaps, spaces between
// words, the odd typo fixed with Backspace and a thinking pause now and then.
func (w *writer) typeWords(n int) {
	for i := 0; i < n; i++ {
		gap := 80 + w.r.Int64N(500)
		if w.r.IntN(60) == 0 {
			gap += 2_000 + w.r.Int64N(8_000)
		}
		switch {
		case w.r.IntN(25) == 0 && len(w.text) > 0:
			w.key(gap, "Backspace")
		case w.r.IntN(6) == 0:
			w.key(gap, " ")
		default:
			w.key(gap, string(rune('a'+w.r.IntN(26))))
		}
	}
}

func (w *writer) submission(id string, tail int64) Submission {
	start := w.now
	if len(w.events) > 0 {
		start = w.events[0].Time - 500
	}
	end := w.now + tail
	text := string(w.text)
	return Submission{
		SessionID:       id,
		Text:            text,
		TotalChars:      int64(len(w.text)),
		TotalWords:      int64(len(strings.Fields(text))),
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: (end - start) / 1000,
		Events:          w.events,
	}
}

func prose(r *rand.Rand, chars int) string {
	var b strings.Builder
	b.Grow(chars)
	for b.Len() < chars {
		word := 2 + r.IntN(8)
		for i := 0; i < word && b.Len() < chars; i++ {
			b.WriteByte(byte('a' + r.IntN(26)))
		}
		if b.Len() < chars {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func organic(r *rand.Rand, id string) Submission {
	w := newWriter(r)
	w.typeWords(400 + r.IntN(400))
	return w.submission(id, 1_000)
}

func pasteDump(r *rand.Rand, id string) Submission {
	w := newWriter(r)
	w.typeWords(10 + r.IntN(20))
	w.paste(500, prose(r, 1_500+r.IntN(1_500)))
	w.typeWords(r.IntN(5))
	return w.submission(id, 1_000)
}

// scripted types at a fixed 40ms interval, which no person does.
func scripted(r *rand.Rand, id string) Submission {
	w := newWriter(r)
	n := 900 + r.IntN(300)
	for i := 0; i < n; i++ {
		k := string(rune('a' + r.IntN(26)))
		if i%6 == 5 {
			k = " "
		}
		w.key(40, k)
	}
	return w.submission(id, 200)
}

func burstInsert(r *rand.Rand, id string) Submission {
	w := newWriter(r)
	w.typeWords(150 + r.IntN(100))
	bursts := 2 + r.IntN(3)
	for i := 0; i < bursts; i++ {
		w.edit(300+r.Int64N(700), prose(r, 600+r.IntN(600)))
		w.typeWords(5 + r.IntN(10))
	}
	return w.submission(id, 1_000)
}
