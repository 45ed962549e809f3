package model_selection

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// Splitter defines interface for cross-validation splitters
type Splitter interface {
	Split(X, y mat.Matrix) ([]Fold, error)
	GetNSplits() int
}

// Fold represents a single fold in cross-validation
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed int64) *KFold {
	if nSplits < 2 {
		nSplits = 5 // Default to 5-fold
	}
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold. The first n % k folds
// get one extra test sample.
func (kf *KFold) Split(X, _ mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if err := checkSplits(kf.NSplits, nSamples); err != nil {
		return nil, err
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.RandomSeed), uint64(kf.RandomSeed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		test := append([]int(nil), indices[current:current+testSize]...)
		sort.Ints(test)
		folds[i] = Fold{
			TrainIndices: complement(nSamples, test),
			TestIndices:  test,
		}
		current += testSize
	}
	return folds, nil
}

// StratifiedKFold implements stratified k-fold cross-validation.
// Each class is dealt across the folds separately, so every fold keeps
// roughly the class proportions of y.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified train/test indices for each fold
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if err := checkSplits(skf.NSplits, nSamples); err != nil {
		return nil, err
	}
	if yr, _ := y.Dims(); yr != nSamples {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", nSamples, yr, 0)
	}

	// Group indices by class, classes in ascending order
	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}
	classes := make([]float64, 0, len(classIndices))
	for c := range classIndices {
		classes = append(classes, c)
	}
	sort.Float64s(classes)

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(skf.RandomSeed), uint64(skf.RandomSeed)))
		for _, c := range classes {
			indices := classIndices[c]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	// 余りのサンプルはクラスをまたいで次の fold に回し、fold のサイズ差を1以内にする
	k := skf.NSplits
	tests := make([][]int, k)
	start := 0
	for _, c := range classes {
		indices := classIndices[c]
		foldSize := len(indices) / k
		remainder := len(indices) % k

		sizes := make([]int, k)
		for i := range sizes {
			sizes[i] = foldSize
		}
		for t := 0; t < remainder; t++ {
			sizes[(start+t)%k]++
		}
		start = (start + remainder) % k

		current := 0
		for i := 0; i < k; i++ {
			tests[i] = append(tests[i], indices[current:current+sizes[i]]...)
			current += sizes[i]
		}
	}

	folds := make([]Fold, skf.NSplits)
	for i, test := range tests {
		sort.Ints(test)
		folds[i] = Fold{
			TrainIndices: complement(nSamples, test),
			TestIndices:  test,
		}
	}
	return folds, nil
}

func checkSplits(nSplits, nSamples int) error {
	if nSplits > nSamples {
		return errors.NewValueError("Split", fmt.Sprintf(
			"cannot have number of splits n_splits=%d greater than the number of samples: n_samples=%d", nSplits, nSamples))
	}
	return nil
}

// complement returns 0..n-1 without the (sorted) test indices.
func complement(n int, test []int) []int {
	train := make([]int, 0, n-len(test))
	k := 0
	for j := 0; j < n; j++ {
		if k < len(test) && test[k] == j {
			k++
			continue
		}
		train = append(train, j)
	}
	return train
}
