// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Department of Linguistics,
// Faculty of Arts, Charles University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package predict

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const maxAROrder = 3

// leastSquares solves min ||A x - b|| via QR decomposition.
// An underdetermined system (fewer equations than coefficients)
// cannot be fitted and disqualifies the family for this series.
func leastSquares(rows [][]float64, b []float64) ([]float64, error) {
	numRows := len(rows)
	numCols := len(rows[0])
	if numRows < numCols {
		return nil, errSkipFamily
	}
	a := mat.NewDense(numRows, numCols, nil)
	for i, row := range rows {
		a.SetRow(i, row)
	}
	var qr mat.QR
	qr.Factorize(a)
	var beta mat.Dense
	err := qr.SolveTo(&beta, false, mat.NewDense(numRows, 1, b))
	// an ill-conditioned system still yields a usable solution
	if err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, fmt.Errorf("failed to solve least squares: %w", err)
		}
	}
	ans := make([]float64, numCols)
	for i := range ans {
		ans[i] = beta.At(i, 0)
	}
	return ans, nil
}

// arOrder picks the autoregression window for a training size.
func arOrder(n int) int {
	p := maxAROrder
	// keep at least p+1 equations
	for p > 1 && n-p < p+1 {
		p--
	}
	return p
}

// uniTSForecaster fits an autoregressive model on the target alone
// and forecasts recursively, feeding each prediction back as the
// next lag.
type uniTSForecaster struct{}

func (f uniTSForecaster) Name() string { return "univariateTS" }

func (f uniTSForecaster) MinPoints() int { return 4 }

func (f uniTSForecaster) Forecast(s series, horizon int) ([]float64, error) {
	y := s.y
	p := arOrder(len(y))
	rows := make([][]float64, 0, len(y)-p)
	b := make([]float64, 0, len(y)-p)
	for t := p; t < len(y); t++ {
		row := make([]float64, p+1)
		row[0] = 1.0
		for lag := 1; lag <= p; lag++ {
			row[lag] = y[t-lag]
		}
		rows = append(rows, row)
		b = append(b, y[t])
	}
	coef, err := leastSquares(rows, b)
	if err != nil {
		return nil, fmt.Errorf("failed to fit univariate model: %w", err)
	}

	hist := append([]float64{}, y...)
	ans := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		v := coef[0]
		for lag := 1; lag <= p; lag++ {
			v += coef[lag] * hist[len(hist)-lag]
		}
		ans[h] = v
		hist = append(hist, v)
	}
	return ans, nil
}

// multiTSForecaster extends the autoregression with the exogenous
// feature columns, whose held-out values are known at prediction
// time. Without features it degrades to the univariate fit.
type multiTSForecaster struct{}

func (f multiTSForecaster) Name() string { return "multivariateTS" }

func (f multiTSForecaster) MinPoints() int { return 5 }

func (f multiTSForecaster) Forecast(s series, horizon int) ([]float64, error) {
	if len(s.feats) == 0 {
		return uniTSForecaster{}.Forecast(s, horizon)
	}
	y := s.y
	p := arOrder(len(y))
	numFeats := len(s.feats)
	rows := make([][]float64, 0, len(y)-p)
	b := make([]float64, 0, len(y)-p)
	for t := p; t < len(y); t++ {
		row := make([]float64, 1+p+numFeats)
		row[0] = 1.0
		for lag := 1; lag <= p; lag++ {
			row[lag] = y[t-lag]
		}
		copy(row[1+p:], s.featsAt(t))
		rows = append(rows, row)
		b = append(b, y[t])
	}
	coef, err := leastSquares(rows, b)
	if err != nil {
		if errors.Is(err, errSkipFamily) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fit multivariate model: %w", err)
	}

	hist := append([]float64{}, y...)
	ans := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		t := len(y) + h
		v := coef[0]
		for lag := 1; lag <= p; lag++ {
			v += coef[lag] * hist[len(hist)-lag]
		}
		for i, fv := range s.featsAt(t) {
			v += coef[1+p+i] * fv
		}
		ans[h] = v
		hist = append(hist, v)
	}
	return ans, nil
}
