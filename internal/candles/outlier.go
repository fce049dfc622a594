package candles

import "math"

// grubbsAlpha is the significance level of the outlier test.
const grubbsAlpha = 0.05

// filterOutliers iteratively removes the most extreme price point
// while a two-sided Grubbs test flags it as inconsistent with the rest
// of the sample. Synthetic anchor points participate in the test like
// any other point. Returns the kept and the removed points.
func filterOutliers(points []pricePoint) (kept, removed []pricePoint) {
	kept = make([]pricePoint, len(points))
	copy(kept, points)

	for len(kept) >= 3 {
		mean, sd := meanStddev(kept)
		if sd == 0 {
			break
		}

		extreme := 0
		maxDev := 0.0
		for i, p := range kept {
			if dev := math.Abs(p.price - mean); dev > maxDev {
				maxDev = dev
				extreme = i
			}
		}

		g := maxDev / sd
		if g <= grubbsCritical(len(kept)) {
			break
		}

		removed = append(removed, kept[extreme])
		kept = append(kept[:extreme], kept[extreme+1:]...)
	}

	return kept, removed
}

func meanStddev(points []pricePoint) (mean, sd float64) {
	n := float64(len(points))
	for _, p := range points {
		mean += p.price
	}
	mean /= n

	var sumSq float64
	for _, p := range points {
		d := p.price - mean
		sumSq += d * d
	}
	if len(points) > 1 {
		sd = math.Sqrt(sumSq / (n - 1))
	}
	return mean, sd
}

// grubbsCritical returns the two-sided Grubbs rejection threshold for a
// sample of size n at the package significance level.
func grubbsCritical(n int) float64 {
	nf := float64(n)
	t := studentTQuantile(1-grubbsAlpha/(2*nf), nf-2)
	return (nf - 1) / math.Sqrt(nf) * math.Sqrt(t*t/(nf-2+t*t))
}

// studentTQuantile approximates the Student-t quantile via the
// Cornish-Fisher expansion around the normal quantile. Accurate to a
// few decimals for the small degrees of freedom the filter sees.
func studentTQuantile(p, df float64) float64 {
	z := normQuantile(p)
	z2 := z * z

	g1 := (z2*z + z) / 4
	g2 := ((5*z2*z2+16*z2+3)*z) / 96
	g3 := ((3*z2*z2*z2+19*z2*z2+17*z2-15)*z) / 384
	g4 := ((79*z2*z2*z2*z2+776*z2*z2*z2+1482*z2*z2-1920*z2-945)*z) / 92160

	return z + g1/df + g2/(df*df) + g3/(df*df*df) + g4/(df*df*df*df)
}

// normQuantile is Acklam's rational approximation of the standard
// normal inverse CDF.
func normQuantile(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}

	a := []float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := []float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	c := []float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := []float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}

	const pLow = 0.02425
	const pHigh = 1 - pLow

	switch {
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p > pHigh:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	default:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	}
}
