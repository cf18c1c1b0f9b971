package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mimir-aip/attrition-risk/pkg/models"
)

// LogisticRegression is L2-regularised logistic regression fit by Newton's
// method (IRLS). The intercept is not penalised.
type LogisticRegression struct {
	C           float64   `json:"c"`
	MaxIter     int       `json:"max_iter"`
	Tol         float64   `json:"tol"`
	Coef        []float64 `json:"coef"`
	Intercept   float64   `json:"intercept"`
	NumFeatures int       `json:"num_features"`
}

// NewLogisticRegression creates a logistic regression with inverse
// regularisation strength c
func NewLogisticRegression(c float64, maxIter int) *LogisticRegression {
	return &LogisticRegression{C: c, MaxIter: maxIter, Tol: 1e-8}
}

func (lr *LogisticRegression) Fit(X [][]float64, y []float64) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	if lr.C <= 0 {
		return fmt.Errorf("logistic regression: C must be positive, got %v", lr.C)
	}
	n, p := len(X), len(X[0])
	d := p + 1

	// Design matrix with a trailing intercept column
	design := mat.NewDense(n, d, nil)
	for i, row := range X {
		for j, v := range row {
			design.Set(i, j, v)
		}
		design.Set(i, p, 1)
	}

	beta := mat.NewVecDense(d, nil)
	eta := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(d, nil)
	scaled := mat.NewDense(n, d, nil)
	var hess mat.SymDense
	var chol mat.Cholesky
	var step mat.VecDense

	for iter := 0; iter < lr.MaxIter; iter++ {
		eta.MulVec(design, beta)

		resid := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			prob := sigmoid(eta.AtVec(i))
			resid.SetVec(i, prob-y[i])
			s := math.Sqrt(math.Max(prob*(1-prob), 1e-12))
			for j := 0; j < d; j++ {
				scaled.Set(i, j, s*design.At(i, j))
			}
		}

		grad.MulVec(design.T(), resid)
		hess.Reset()
		hess.SymOuterK(1, scaled.T())
		for j := 0; j < p; j++ {
			grad.SetVec(j, grad.AtVec(j)+beta.AtVec(j)/lr.C)
			hess.SetSym(j, j, hess.At(j, j)+1/lr.C)
		}

		if ok := chol.Factorize(&hess); !ok {
			return fmt.Errorf("logistic regression: hessian is not positive definite at iteration %d", iter)
		}
		if err := chol.SolveVecTo(&step, grad); err != nil {
			return fmt.Errorf("logistic regression: %w", err)
		}
		beta.SubVec(beta, &step)

		if mat.Norm(&step, math.Inf(1)) < lr.Tol {
			break
		}
	}

	lr.Coef = make([]float64, p)
	for j := range lr.Coef {
		lr.Coef[j] = beta.AtVec(j)
	}
	lr.Intercept = beta.AtVec(p)
	lr.NumFeatures = p
	return nil
}

// Decision returns the linear score w·x + b for each row
func (lr *LogisticRegression) Decision(X [][]float64) ([]float64, error) {
	if err := validateInput(X, lr.NumFeatures); err != nil {
		return nil, err
	}
	w := mat.NewVecDense(lr.NumFeatures, lr.Coef)
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = mat.Dot(w, mat.NewVecDense(len(row), row)) + lr.Intercept
	}
	return out, nil
}

func (lr *LogisticRegression) PredictProba(X [][]float64) ([]float64, error) {
	scores, err := lr.Decision(X)
	if err != nil {
		return nil, err
	}
	for i, s := range scores {
		scores[i] = sigmoid(s)
	}
	return scores, nil
}

func (lr *LogisticRegression) Predict(X [][]float64) ([]float64, error) {
	return predictWith(lr, X)
}

func (lr *LogisticRegression) Kind() models.ModelKind { return models.ModelKindLogisticRegression }
