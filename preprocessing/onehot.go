package preprocessing

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/churnkit/core/model"
	"github.com/YuminosukeSato/churnkit/dataset"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
)

// OneHotEncoder は文字列型の列を 0/1 のダミー列に置き換える。
//
// カテゴリは列ごとに辞書順に並べ、DropFirst が true なら先頭のカテゴリを
// 基準カテゴリとして落とす（多重共線性の回避）。ダミー列はフレームの末尾に
// 元の列順で追加され、名前は "<列名>_<カテゴリ>" になる。
type OneHotEncoder struct {
	state  *model.StateManager
	logger log.Logger

	// DropFirst は各列の先頭カテゴリを落とすかどうか (デフォルト: true)
	DropFirst bool

	reserved   map[string]struct{}
	columns    []string
	categories map[string][]string
}

// EncoderOption configures a OneHotEncoder.
type EncoderOption func(*OneHotEncoder)

// WithReserved excludes columns from encoding even when they hold strings.
func WithReserved(columns ...string) EncoderOption {
	return func(e *OneHotEncoder) {
		for _, c := range columns {
			e.reserved[c] = struct{}{}
		}
	}
}

// WithDropFirst sets DropFirst.
func WithDropFirst(drop bool) EncoderOption {
	return func(e *OneHotEncoder) {
		e.DropFirst = drop
	}
}

// WithEncoderLogger sets the logger.
func WithEncoderLogger(logger log.Logger) EncoderOption {
	return func(e *OneHotEncoder) {
		e.logger = logger
	}
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
func NewOneHotEncoder(options ...EncoderOption) *OneHotEncoder {
	e := &OneHotEncoder{
		state:     model.NewStateManager(),
		logger:    log.Nop(),
		DropFirst: true,
		reserved:  make(map[string]struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Fit はエンコード対象の列とカテゴリを学習する
func (e *OneHotEncoder) Fit(df dataframe.DataFrame) error {
	if df.Err != nil {
		return errors.Wrap(df.Err, "OneHotEncoder.Fit")
	}

	var columns []string
	categories := make(map[string][]string)
	for _, name := range df.Names() {
		if _, skip := e.reserved[name]; skip {
			continue
		}
		col := df.Col(name)
		if col.Type() != series.String {
			continue
		}
		columns = append(columns, name)
		categories[name] = distinctSorted(col)
	}

	e.columns = columns
	e.categories = categories
	e.state.SetDimensions(df.Ncol(), df.Nrow())
	e.state.SetFitted()

	e.logger.Info("Encoding these categorical columns",
		log.ModelNameKey, "OneHotEncoder",
		log.OperationKey, log.OperationFit,
		log.ColumnsKey, columns,
	)
	return nil
}

// Transform は学習済みのカテゴリでダミー列を作る。
// 学習時に見なかったカテゴリと欠損値はすべて0になる。
func (e *OneHotEncoder) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := e.state.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return dataframe.DataFrame{}, err
	}
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(df.Err, "OneHotEncoder.Transform")
	}
	if len(e.columns) == 0 {
		return df, nil
	}

	indicators := make([]series.Series, 0)
	for _, name := range e.columns {
		if !dataset.HasColumn(df, name) {
			return dataframe.DataFrame{}, errors.NewMissingColumnError("OneHotEncoder.Transform", name)
		}
		indicators = append(indicators, e.encodeColumn(df.Col(name))...)
	}

	out := df.Drop(e.columns)
	for _, s := range indicators {
		out = out.Mutate(s)
	}
	if out.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(out.Err, "OneHotEncoder.Transform")
	}

	e.logger.Debug("Categorical columns encoded",
		log.ModelNameKey, "OneHotEncoder",
		log.OperationKey, log.OperationTransform,
		log.FeaturesKey, out.Ncol(),
	)
	return out, nil
}

// FitTransform はFitとTransformを同時に実行する
func (e *OneHotEncoder) FitTransform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := e.Fit(df); err != nil {
		return dataframe.DataFrame{}, err
	}
	return e.Transform(df)
}

// Columns は学習したエンコード対象の列を返す
func (e *OneHotEncoder) Columns() []string {
	return append([]string(nil), e.columns...)
}

// Categories は列 name のカテゴリ（辞書順、落としたものを含む）を返す
func (e *OneHotEncoder) Categories(name string) []string {
	return append([]string(nil), e.categories[name]...)
}

// FeatureNames はTransformが追加するダミー列の名前を返す
func (e *OneHotEncoder) FeatureNames() []string {
	var names []string
	for _, col := range e.columns {
		for _, cat := range e.kept(col) {
			names = append(names, indicatorName(col, cat))
		}
	}
	return names
}

func (e *OneHotEncoder) kept(col string) []string {
	cats := e.categories[col]
	if e.DropFirst && len(cats) > 0 {
		return cats[1:]
	}
	return cats
}

func (e *OneHotEncoder) encodeColumn(col series.Series) []series.Series {
	cats := e.kept(col.Name)
	out := make([]series.Series, 0, len(cats))
	n := col.Len()
	for _, cat := range cats {
		values := make([]int, n)
		for i := 0; i < n; i++ {
			el := col.Elem(i)
			if !el.IsNA() && el.String() == cat {
				values[i] = 1
			}
		}
		out = append(out, series.New(values, series.Int, indicatorName(col.Name, cat)))
	}
	return out
}

func indicatorName(col, cat string) string {
	return fmt.Sprintf("%s_%s", col, cat)
}

func distinctSorted(col series.Series) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < col.Len(); i++ {
		el := col.Elem(i)
		if el.IsNA() {
			continue
		}
		v := el.String()
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
