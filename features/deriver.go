// Package features derives the per-purchase churn features: membership
// length, purchase interval, running average interval and average amount.
package features

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/churnkit/dataset"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
)

// DefaultEpsilon keeps the average amount finite when the purchase count is 0.
const DefaultEpsilon = 1e-9

// Deriver appends the derived feature columns to a transaction table.
type Deriver struct {
	schema  dataset.Schema
	epsilon float64
	logger  log.Logger
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithSchema sets the column names.
func WithSchema(schema dataset.Schema) Option {
	return func(d *Deriver) {
		d.schema = schema
	}
}

// WithEpsilon sets the denominator offset of the average purchase amount.
func WithEpsilon(eps float64) Option {
	return func(d *Deriver) {
		d.epsilon = eps
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(d *Deriver) {
		d.logger = logger
	}
}

// NewDeriver creates a Deriver using the default schema.
func NewDeriver(options ...Option) *Deriver {
	d := &Deriver{
		schema:  dataset.DefaultSchema(),
		epsilon: DefaultEpsilon,
		logger:  log.Nop(),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Transform returns df sorted by (customer, purchase date) with four columns
// appended. df itself is not modified.
//
// The purchase interval of a customer's first purchase is 0. The running
// average interval of a row is the mean of the intervals of the customer's
// later purchases up to and including that row, rounded to one decimal; it is
// 0 for the first purchase and for every row whose purchase count is <= 1.
func (d *Deriver) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	const op = "Deriver.Transform"
	s := d.schema

	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(df.Err, op)
	}
	if err := dataset.RequireColumns(op, df,
		s.CustomerID, s.SignupDate, s.LastUseDate, s.PurchaseDate, s.PurchaseCount, s.TotalAmount,
	); err != nil {
		return dataframe.DataFrame{}, err
	}
	n := df.Nrow()
	if n == 0 {
		return dataframe.DataFrame{}, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}

	signup, err := parseDateColumn(df.Col(s.SignupDate))
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	lastUse, err := parseDateColumn(df.Col(s.LastUseDate))
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	purchase, err := parseDateColumn(df.Col(s.PurchaseDate))
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	// 顧客ID・購入日で安定ソート（同値は元の順序を維持）
	keys := newCustomerKeys(df.Col(s.CustomerID))
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if c := keys.compare(i, j); c != 0 {
			return c < 0
		}
		return purchase[i].Before(purchase[j])
	})

	sorted := df.Subset(order)
	if sorted.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(sorted.Err, op)
	}
	signup = permute(signup, order)
	lastUse = permute(lastUse, order)
	purchase = permute(purchase, order)
	keys = newCustomerKeys(sorted.Col(s.CustomerID))

	counts := sorted.Col(s.PurchaseCount).Float()
	totals := sorted.Col(s.TotalAmount).Float()

	membership := make([]int, n)
	interval := make([]int, n)
	avgInterval := make([]float64, n)
	avgAmount := make([]float64, n)

	customers := 0
	var sum float64
	var seen int
	for r := 0; r < n; r++ {
		membership[r] = int(wholeDays(lastUse[r], signup[r]))

		if r == 0 || !keys.same(r-1, r) {
			customers++
			sum, seen = 0, 0
		} else {
			interval[r] = int(wholeDays(purchase[r], purchase[r-1]))
			sum += float64(interval[r])
			seen++
			avgInterval[r] = roundHalfEven(sum/float64(seen), 1)
		}

		avgAmount[r] = totals[r] / (counts[r] + d.epsilon)
	}

	// 購入回数が1回以下の行は平均購入周期を0にする（全行の計算後に上書き）
	for r := range avgInterval {
		if counts[r] <= 1 {
			avgInterval[r] = 0
		}
	}

	out := sorted.Mutate(series.New(formatDates(signup), series.String, s.SignupDate)).
		Mutate(series.New(formatDates(lastUse), series.String, s.LastUseDate)).
		Mutate(series.New(formatDates(purchase), series.String, s.PurchaseDate)).
		Mutate(series.New(membership, series.Int, s.MembershipDays)).
		Mutate(series.New(interval, series.Int, s.PurchaseInterval)).
		Mutate(series.New(avgInterval, series.Float, s.AvgPurchaseInterval)).
		Mutate(series.New(avgAmount, series.Float, s.AvgPurchaseAmount))
	if out.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(out.Err, op)
	}

	d.logger.Debug("Derived churn features",
		log.OperationKey, log.OperationTransform,
		log.SamplesKey, n,
		log.CustomersKey, customers,
	)
	return out, nil
}

func parseDateColumn(col series.Series) ([]time.Time, error) {
	out := make([]time.Time, col.Len())
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if e.IsNA() {
			return nil, errors.NewParseError(col.Name, i, "", errEmptyDate)
		}
		raw := e.String()
		t, err := ParseDate(raw)
		if err != nil {
			return nil, errors.NewParseError(col.Name, i, raw, err)
		}
		out[i] = t
	}
	return out, nil
}

func permute(ts []time.Time, order []int) []time.Time {
	out := make([]time.Time, len(order))
	for i, j := range order {
		out[i] = ts[j]
	}
	return out
}

func roundHalfEven(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(x*p) / p
}

// customerKeys compares customer IDs numerically when the column is numeric
// and lexically otherwise. Missing numeric IDs sort last and form no group.
type customerKeys struct {
	numeric bool
	num     []float64
	str     []string
}

func newCustomerKeys(col series.Series) customerKeys {
	switch col.Type() {
	case series.Int, series.Float:
		return customerKeys{numeric: true, num: col.Float()}
	default:
		return customerKeys{str: col.Records()}
	}
}

func (k customerKeys) compare(i, j int) int {
	if !k.numeric {
		return strings.Compare(k.str[i], k.str[j])
	}
	a, b := k.num[i], k.num[j]
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return 1
	case math.IsNaN(b):
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (k customerKeys) same(i, j int) bool {
	if k.numeric && (math.IsNaN(k.num[i]) || math.IsNaN(k.num[j])) {
		return false
	}
	return k.compare(i, j) == 0
}
