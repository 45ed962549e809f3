// Package dataset loads and saves the customer transaction table and names
// the columns the churn pipeline depends on.
//
// Tables are gota DataFrames. Column headers default to those of the source
// data set; use a custom Schema when the CSV uses different headers.
package dataset

import (
	"github.com/go-gota/gota/dataframe"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// Schema names the input columns and the derived feature columns.
type Schema struct {
	CustomerID    string
	CompanyName   string
	SignupDate    string
	LastUseDate   string
	PurchaseDate  string
	PurchaseCount string
	TotalAmount   string
	Churned       string

	MembershipDays      string
	PurchaseInterval    string
	AvgPurchaseInterval string
	AvgPurchaseAmount   string
}

// DefaultSchema returns the headers of the customer transaction export.
func DefaultSchema() Schema {
	return Schema{
		CustomerID:    "CustomerID",
		CompanyName:   "회사명",
		SignupDate:    "가입 일자",
		LastUseDate:   "최근 서비스 이용 날짜",
		PurchaseDate:  "구매 일자",
		PurchaseCount: "구매 횟수",
		TotalAmount:   "총 구매 금액",
		Churned:       "이탈 여부",

		MembershipDays:      "가입 기간",
		PurchaseInterval:    "구매 주기",
		AvgPurchaseInterval: "평균 구매 주기",
		AvgPurchaseAmount:   "평균 구매 금액",
	}
}

// DateColumns returns the three calendar date columns.
func (s Schema) DateColumns() []string {
	return []string{s.SignupDate, s.LastUseDate, s.PurchaseDate}
}

// Reserved returns the columns that categorical encoding must leave alone:
// the identifier, the label and the raw dates.
func (s Schema) Reserved() []string {
	return append([]string{s.CustomerID, s.Churned}, s.DateColumns()...)
}

// Excluded returns the columns removed before building the feature matrix.
func (s Schema) Excluded() []string {
	return []string{s.CustomerID, s.CompanyName, s.Churned, s.SignupDate, s.LastUseDate, s.PurchaseDate}
}

// HasColumn reports whether df has a column called name.
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// RequireColumns returns a MissingColumnError for the first name not in df.
func RequireColumns(op string, df dataframe.DataFrame, names ...string) error {
	have := make(map[string]struct{}, df.Ncol())
	for _, n := range df.Names() {
		have[n] = struct{}{}
	}
	for _, name := range names {
		if _, ok := have[name]; !ok {
			return errors.NewMissingColumnError(op, name)
		}
	}
	return nil
}

// ExistingColumns filters names down to those present in df, keeping order.
func ExistingColumns(df dataframe.DataFrame, names ...string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if HasColumn(df, name) {
			out = append(out, name)
		}
	}
	return out
}
