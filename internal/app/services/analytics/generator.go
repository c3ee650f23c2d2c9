// Package analytics produces the synthetic channel dashboards shown on the
// analytics page. Richer sections unlock with higher plan tiers.
package analytics

import (
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/R3E-Network/video_portal/internal/config"
)

// DefaultDays is the length of the generated views series, excluding today.
const DefaultDays = 30

// ViewsPoint is one day of the views series.
type ViewsPoint struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

// Slice is one named share of a breakdown chart.
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// EngagementPoint extends a views point with interaction counts.
type EngagementPoint struct {
	ViewsPoint
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
}

// RevenuePoint extends a views point with earnings.
type RevenuePoint struct {
	ViewsPoint
	Revenue float64 `json:"revenue"`
}

// TopVideo is a row of the top performing videos table.
type TopVideo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Views      int     `json:"views"`
	Engagement int     `json:"engagement"`
	Revenue    float64 `json:"revenue"`
}

// Report is the full dashboard for one tier. Sections the tier does not
// unlock are empty, never nil.
type Report struct {
	Tier       string            `json:"tier"`
	Views      []ViewsPoint      `json:"viewsData"`
	Devices    []Slice           `json:"deviceData"`
	Audience   []Slice           `json:"audienceData"`
	Engagement []EngagementPoint `json:"engagementData"`
	Revenue    []RevenuePoint    `json:"revenueData"`
	TopVideos  []TopVideo        `json:"topVideos"`
}

// Summary is the headline figure of the views chart.
type Summary struct {
	Total  int     `json:"total"`
	Change float64 `json:"change"`
}

type bucket struct {
	name       string
	base, span int
}

var (
	deviceBuckets = []bucket{
		{"Desktop", 30, 50},
		{"Mobile", 20, 40},
		{"Tablet", 5, 20},
		{"TV", 1, 10},
	}
	audienceBuckets = []bucket{
		{"13-17", 5, 10},
		{"18-24", 15, 20},
		{"25-34", 20, 25},
		{"35-44", 15, 20},
		{"45-54", 10, 15},
		{"55+", 5, 10},
	}
)

// Generator builds reports from a seeded random source.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewGenerator creates a generator. A nil source is seeded from the clock.
func NewGenerator(rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rnd: rnd, now: time.Now}
}

// Generate builds the report for tier covering the last days days plus today.
func (g *Generator) Generate(tier string, days int) Report {
	if days <= 0 {
		days = DefaultDays
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	report := Report{
		Tier:       tier,
		Views:      g.views(days),
		Devices:    g.breakdown(deviceBuckets),
		Audience:   []Slice{},
		Engagement: []EngagementPoint{},
		Revenue:    []RevenuePoint{},
		TopVideos:  []TopVideo{},
	}

	if tier != config.PlanPremium && tier != config.PlanCreator {
		return report
	}
	report.Audience = g.breakdown(audienceBuckets)
	report.Engagement = make([]EngagementPoint, 0, len(report.Views))
	for _, p := range report.Views {
		v := float64(p.Views)
		report.Engagement = append(report.Engagement, EngagementPoint{
			ViewsPoint: p,
			Likes:      int(math.Floor(v * g.uniform(0.05, 0.15))),
			Comments:   int(math.Floor(v * g.uniform(0.01, 0.06))),
			Shares:     int(math.Floor(v * g.uniform(0.005, 0.035))),
		})
	}

	if tier != config.PlanCreator {
		return report
	}
	report.Revenue = make([]RevenuePoint, 0, len(report.Views))
	for _, p := range report.Views {
		report.Revenue = append(report.Revenue, RevenuePoint{
			ViewsPoint: p,
			Revenue:    round2(float64(p.Views) * g.uniform(0.0005, 0.0015)),
		})
	}
	for i := 1; i <= 5; i++ {
		report.TopVideos = append(report.TopVideos, TopVideo{
			ID:         "video-" + strconv.Itoa(i),
			Title:      "Top Performing Video " + strconv.Itoa(i),
			Views:      g.intn(1000, 10000),
			Engagement: g.intn(5, 20),
			Revenue:    round2(g.uniform(10, 110)),
		})
	}
	return report
}

// Summarize totals views and compares the second half of the series with
// the first. The split point is floor(n/2).
func Summarize(views []ViewsPoint) Summary {
	if len(views) == 0 {
		return Summary{}
	}
	half := len(views) / 2
	var total, previous, current int
	for i, p := range views {
		total += p.Views
		if i < half {
			previous += p.Views
		} else {
			current += p.Views
		}
	}
	var change float64
	if previous > 0 {
		change = math.Round(float64(current-previous)/float64(previous)*1000) / 10
	}
	return Summary{Total: total, Change: change}
}

func (g *Generator) views(days int) []ViewsPoint {
	today := g.now().UTC()
	out := make([]ViewsPoint, 0, days+1)
	for i := days; i >= 0; i-- {
		out = append(out, ViewsPoint{
			Date:  today.AddDate(0, 0, -i).Format("2006-01-02"),
			Views: g.intn(100, 1000),
		})
	}
	return out
}

func (g *Generator) breakdown(buckets []bucket) []Slice {
	out := make([]Slice, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, Slice{Name: b.name, Value: g.intn(b.base, b.span)})
	}
	return out
}

// intn returns a value in [base, base+span).
func (g *Generator) intn(base, span int) int {
	return base + g.rnd.Intn(span)
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rnd.Float64()*(hi-lo)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
