package importance

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

func TestRank(t *testing.T) {
	ranking, err := Rank(
		[]float64{0.5, -2.0, 0.0, 2.0, -0.5},
		[]string{"a", "b", "c", "d", "e"},
	)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	// 同じ大きさの係数は入力順を保つ
	want := []string{"b", "d", "a", "e", "c"}
	for i, w := range want {
		if ranking[i].Feature != w {
			t.Errorf("position %d = %s, want %s", i, ranking[i].Feature, w)
		}
	}
	if ranking[0].Coefficient != -2.0 || ranking[0].Importance != 2.0 {
		t.Errorf("signed coefficient must be preserved, got %+v", ranking[0])
	}
	for i := 1; i < len(ranking); i++ {
		if ranking[i].Importance > ranking[i-1].Importance {
			t.Errorf("ranking not descending at %d", i)
		}
	}

	if got := Top(ranking, 2); len(got) != 2 || got[1].Feature != "d" {
		t.Errorf("Top(2) = %+v", got)
	}
	if got := Top(ranking, 0); len(got) != len(ranking) {
		t.Errorf("Top(0) should return everything")
	}
}

func TestRank_Errors(t *testing.T) {
	_, err := Rank([]float64{1, 2}, []string{"a"})
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	if _, err := Rank(nil, nil); err == nil {
		t.Error("empty input should fail")
	}

	_, err = Rank([]float64{math.NaN()}, []string{"a"})
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for NaN, got %v", err)
	}
}

func TestNewBarChart(t *testing.T) {
	ranking, err := Rank([]float64{0.3, -1.2}, []string{"구매 금액", "회원 기간"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewBarChart(ranking)
	if err != nil {
		t.Fatalf("NewBarChart failed: %v", err)
	}
	if p.Title.Text != ChartTitle || p.X.Label.Text != ChartXLabel || p.Y.Label.Text != ChartYLabel {
		t.Errorf("unexpected labels: %q %q %q", p.Title.Text, p.X.Label.Text, p.Y.Label.Text)
	}
	if p.X.Tick.Label.Rotation != math.Pi/2 {
		t.Errorf("x tick rotation = %v", p.X.Tick.Label.Rotation)
	}

	if _, err := NewBarChart(nil); err == nil {
		t.Error("empty ranking should fail")
	}
}

func TestPlotBar_WritesPNG(t *testing.T) {
	ranking, err := Rank([]float64{0.8, 0.1, -0.4}, []string{"x1", "x2", "x3"})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out", "feature_importance.png")
	if err := PlotBar(ranking, path); err != nil {
		t.Fatalf("PlotBar failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("plot not written: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Errorf("output is not a PNG image")
	}
}
