// Package metrics は二値分類の評価指標を提供する。
//
// 陽性クラスは 1、陰性クラスは 0。ゼロ除算になる指標は 0 を返し、
// UndefinedMetricWarning を errors.Warn で通知する（scikit-learn の
// zero_division=0 と同じ扱い）。
package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// ClassificationReport は二値分類の評価結果
type ClassificationReport struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64

	// ConfusionMatrix は [実際][予測] の件数 ([[TN, FP], [FN, TP]])
	ConfusionMatrix [2][2]int

	// Support は評価したサンプル数
	Support int
}

// TN, FP, FN, TP は混同行列の各セルを返す
func (r *ClassificationReport) TN() int { return r.ConfusionMatrix[0][0] }
func (r *ClassificationReport) FP() int { return r.ConfusionMatrix[0][1] }
func (r *ClassificationReport) FN() int { return r.ConfusionMatrix[1][0] }
func (r *ClassificationReport) TP() int { return r.ConfusionMatrix[1][1] }

// String は指標を1行で表す
func (r *ClassificationReport) String() string {
	return fmt.Sprintf("accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f confusion=%v",
		r.Accuracy, r.Precision, r.Recall, r.F1, r.ConfusionMatrix)
}

// ConfusionMatrix は2×2の混同行列を計算する（行: 実際、列: 予測、陰性が先）
func ConfusionMatrix(yTrue, yPred mat.Matrix) ([2][2]int, error) {
	var cm [2][2]int
	t, p, err := binaryLabels("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return cm, err
	}
	for i := range t {
		cm[t[i]][p[i]]++
	}
	return cm, nil
}

// Accuracy は正解率（正しく予測した割合）を計算する
func Accuracy(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := range t {
		if t[i] == p[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(t)), nil
}

// Precision は適合率 TP / (TP + FP) を計算する。陽性予測がなければ 0。
func Precision(yTrue, yPred mat.Matrix) (float64, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return precision(cm), nil
}

// Recall は再現率 TP / (TP + FN) を計算する。陽性ラベルがなければ 0。
func Recall(yTrue, yPred mat.Matrix) (float64, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return recall(cm), nil
}

// F1Score は適合率と再現率の調和平均を計算する。両方 0 なら 0。
func F1Score(yTrue, yPred mat.Matrix) (float64, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return f1(cm), nil
}

// Evaluate は全指標をまとめて計算する
func Evaluate(yTrue, yPred mat.Matrix) (*ClassificationReport, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	n := cm[0][0] + cm[0][1] + cm[1][0] + cm[1][1]
	return &ClassificationReport{
		Accuracy:        float64(cm[0][0]+cm[1][1]) / float64(n),
		Precision:       precision(cm),
		Recall:          recall(cm),
		F1:              f1(cm),
		ConfusionMatrix: cm,
		Support:         n,
	}, nil
}

func precision(cm [2][2]int) float64 {
	tp, fp := cm[1][1], cm[0][1]
	if tp+fp == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples", 0))
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

func recall(cm [2][2]int) float64 {
	tp, fn := cm[1][1], cm[1][0]
	if tp+fn == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples", 0))
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

func f1(cm [2][2]int) float64 {
	tp, fp, fn := cm[1][1], cm[0][1], cm[1][0]
	// 2PR/(P+R) = 2TP / (2TP + FP + FN)。P, R が 0 でも同じ式で 0 になる
	denom := 2*tp + fp + fn
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("f-score", "no true nor predicted samples", 0))
		return 0
	}
	return float64(2*tp) / float64(denom)
}

// columns は n×1 の2つの行列を検証してスライスに変換する
func columns(op string, yTrue, yPred mat.Matrix) ([]float64, []float64, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "nil input")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	if cTrue != 1 || cPred != 1 {
		return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	t := mat.Col(nil, 0, yTrue)
	p := mat.Col(nil, 0, yPred)
	return t, p, nil
}

func binaryLabels(op string, yTrue, yPred mat.Matrix) ([]int, []int, error) {
	t, p, err := columns(op, yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}
	ti := make([]int, len(t))
	pi := make([]int, len(p))
	for i := range t {
		a, okA := binary(t[i])
		b, okB := binary(p[i])
		if !okA || !okB {
			return nil, nil, errors.NewValueError(op, fmt.Sprintf("labels must be 0 or 1, got %v and %v at row %d", t[i], p[i], i))
		}
		ti[i], pi[i] = a, b
	}
	return ti, pi, nil
}

func binary(v float64) (int, bool) {
	switch v {
	case 0:
		return 0, true
	case 1:
		return 1, true
	}
	return 0, false
}
