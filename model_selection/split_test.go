package model_selection

import (
	"math"
	"sort"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

func churnFrame(n int) dataframe.DataFrame {
	ids := make([]int, n)
	amount := make([]float64, n)
	label := make([]int, n)
	dates := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = i + 1
		amount[i] = float64(10 * (i + 1))
		label[i] = i % 2
		dates[i] = "2023-01-01"
	}
	return dataframe.New(
		series.New(ids, series.Int, "CustomerID"),
		series.New(dates, series.String, "구매 일자"),
		series.New(amount, series.Float, "amount"),
		series.New(label, series.Int, "churned"),
	)
}

func TestTrainTestSplit_Sizes(t *testing.T) {
	for _, n := range []int{4, 5, 7, 10, 13, 101} {
		df := churnFrame(n)
		split, err := TrainTestSplit(df, "churned", WithDropColumns("CustomerID", "구매 일자", "absent"))
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}

		wantTest := int(math.Round(0.2 * float64(n)))
		if r, _ := split.XTest.Dims(); r != wantTest {
			t.Errorf("n=%d: test rows = %d, want %d", n, r, wantTest)
		}
		if r, _ := split.XTrain.Dims(); r != n-wantTest {
			t.Errorf("n=%d: train rows = %d, want %d", n, r, n-wantTest)
		}
		if len(split.FeatureNames) != 1 || split.FeatureNames[0] != "amount" {
			t.Errorf("n=%d: FeatureNames = %v", n, split.FeatureNames)
		}

		// 訓練とテストは互いに素で全行を覆う
		all := append(append([]int(nil), split.TrainIndices...), split.TestIndices...)
		sort.Ints(all)
		for i, v := range all {
			if v != i {
				t.Fatalf("n=%d: indices are not a partition: %v", n, all)
			}
		}

		// 行の対応が保たれている
		for i, row := range split.TestIndices {
			if split.XTest.At(i, 0) != float64(10*(row+1)) {
				t.Errorf("n=%d: XTest row %d does not match source row %d", n, i, row)
			}
			if split.YTest.At(i, 0) != float64(row%2) {
				t.Errorf("n=%d: YTest row %d does not match source row %d", n, i, row)
			}
		}
	}
}

func TestTrainTestSplit_Reproducible(t *testing.T) {
	df := churnFrame(20)
	opts := []SplitOption{WithDropColumns("CustomerID", "구매 일자"), WithRandomState(42)}

	a, err := TrainTestSplit(df, "churned", opts...)
	if err != nil {
		t.Fatal(err)
	}
	b, err := TrainTestSplit(df, "churned", opts...)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.TestIndices {
		if a.TestIndices[i] != b.TestIndices[i] {
			t.Fatalf("same seed gave different partitions: %v vs %v", a.TestIndices, b.TestIndices)
		}
	}

	c, err := TrainTestSplit(df, "churned", WithDropColumns("CustomerID", "구매 일자"), WithRandomState(7))
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range a.TestIndices {
		if a.TestIndices[i] != c.TestIndices[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds should give different partitions")
	}
}

func TestTrainTestSplit_Errors(t *testing.T) {
	df := churnFrame(10)

	// 文字列の特徴量列
	_, err := TrainTestSplit(df, "churned")
	var ve *errors.ValidationError
	if !errors.As(err, &ve) || ve.ParamName != "구매 일자" {
		t.Errorf("expected ValidationError for string column, got %v", err)
	}

	_, err = TrainTestSplit(df, "label")
	var mce *errors.MissingColumnError
	if !errors.As(err, &mce) {
		t.Errorf("expected MissingColumnError, got %v", err)
	}

	if _, err = TrainTestSplit(df, "churned", WithTestSize(1.5)); err == nil {
		t.Error("test size out of range should fail")
	}

	if _, err = TrainTestSplit(churnFrame(2), "churned", WithDropColumns("구매 일자"), WithTestSize(0.2)); err == nil {
		t.Error("empty test set should fail")
	}
}

func TestLabelVector(t *testing.T) {
	y, err := LabelVector(series.New([]string{"Yes", "no", "TRUE", "n", "1", "0"}, series.String, "churned"))
	if err != nil {
		t.Fatalf("LabelVector failed: %v", err)
	}
	want := []float64{1, 0, 1, 0, 1, 0}
	for i, w := range want {
		if y.At(i, 0) != w {
			t.Errorf("label %d = %v, want %v", i, y.At(i, 0), w)
		}
	}

	_, err = LabelVector(series.New([]string{"yes", "maybe"}, series.String, "churned"))
	var pe *errors.ParseError
	if !errors.As(err, &pe) || pe.Row != 1 || pe.Value != "maybe" {
		t.Errorf("expected ParseError at row 1, got %v", err)
	}

	if _, err = LabelVector(series.New([]int{0, 2}, series.Int, "churned")); err == nil {
		t.Error("numeric label 2 should fail")
	}
}

func TestFeatureMatrix_MissingValue(t *testing.T) {
	df := dataframe.New(series.New([]string{"1.5", "NaN"}, series.Float, "x"))
	_, _, err := FeatureMatrix(df)
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for NaN, got %v", err)
	}
}
