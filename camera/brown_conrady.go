package camera

import "github.com/pkg/errors"

// BrownConradyParams is the number of distortion coefficients.
const BrownConradyParams = 5

// BrownConrady is the Brown-Conrady lens distortion model:
//
//	x_d = x_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x_u*y_u + p2*(r² + 2*x_u²)
//	y_d = y_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p2*x_u*y_u + p1*(r² + 2*y_u²)
//
// in normalized image coordinates.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewBrownConrady takes in a slice of floats that will be passed into the struct in order.
// Missing trailing coefficients are zero.
func NewBrownConrady(inp []float64) (BrownConrady, error) {
	if len(inp) > BrownConradyParams {
		return BrownConrady{}, errors.Errorf("list of parameters too long, expected max %d, got %d", BrownConradyParams, len(inp))
	}
	var p [BrownConradyParams]float64
	copy(p[:], inp)
	return BrownConrady{p[0], p[1], p[2], p[3], p[4]}, nil
}

// Parameters returns the coefficients in order.
func (bc BrownConrady) Parameters() []float64 {
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Distort applies the model to undistorted normalized coordinates.
func (bc BrownConrady) Distort(xu, yu float64) (float64, float64) {
	r2 := xu*xu + yu*yu
	radDist := 1.0 + bc.RadialK1*r2 + bc.RadialK2*r2*r2 + bc.RadialK3*r2*r2*r2
	xd := xu*radDist + 2.0*bc.TangentialP1*xu*yu + bc.TangentialP2*(r2+2.0*xu*xu)
	yd := yu*radDist + 2.0*bc.TangentialP2*xu*yu + bc.TangentialP1*(r2+2.0*yu*yu)
	return xd, yd
}
