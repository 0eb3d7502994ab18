// Package curve implements arithmetic on the 160-bit prime-field elliptic curve defined by AACS.
//
// Points are kept in Jacobian coordinates (X, Y, Z) representing the affine point
// (X/Z², Y/Z³). The point at infinity has Z = 0. Only affine coordinates cross package
// boundaries, always as 20-byte big-endian strings.
//
// The implementation does not attempt to run in constant time.
package curve

import (
	"errors"
	"sync"

	"github.com/cronokirby/saferith"
)

// CoordinateSize is the length of an encoded field element or scalar.
const CoordinateSize = 20

// ErrInvalidPoint is returned when a point cannot be represented in affine coordinates or an
// encoded coordinate is out of range.
var ErrInvalidPoint = errors.New("invalid curve point")

var (
	pBytes = []byte{
		0x9D, 0xC9, 0xD8, 0x13, 0x55, 0xEC, 0xCE, 0xB5, 0x60, 0xBD,
		0xB0, 0x9E, 0xF9, 0xEA, 0xE7, 0xC4, 0x79, 0xA7, 0xD7, 0xDF,
	}
	aBytes = []byte{
		0x9D, 0xC9, 0xD8, 0x13, 0x55, 0xEC, 0xCE, 0xB5, 0x60, 0xBD,
		0xB0, 0x9E, 0xF9, 0xEA, 0xE7, 0xC4, 0x79, 0xA7, 0xD7, 0xDC,
	}
	bBytes = []byte{
		0x40, 0x2D, 0xAD, 0x3E, 0xC1, 0xCB, 0xCD, 0x16, 0x52, 0x48,
		0xD6, 0x8E, 0x12, 0x45, 0xE0, 0xC4, 0xDA, 0xAC, 0xB1, 0xD8,
	}
	nBytes = []byte{
		0x9D, 0xC9, 0xD8, 0x13, 0x55, 0xEC, 0xCE, 0xB5, 0x60, 0xBD,
		0xC4, 0x4F, 0x54, 0x81, 0x7B, 0x2C, 0x7F, 0x5A, 0xB0, 0x17,
	}
	gxBytes = []byte{
		0x2E, 0x64, 0xFC, 0x22, 0x57, 0x83, 0x51, 0xE6, 0xF4, 0xCC,
		0xA7, 0xEB, 0x81, 0xD0, 0xA4, 0xBD, 0xC5, 0x4C, 0xCE, 0xC6,
	}
	gyBytes = []byte{
		0x09, 0x14, 0xA2, 0x5D, 0xD0, 0x54, 0x42, 0x88, 0x9D, 0xB4,
		0x55, 0xC7, 0xF2, 0x3C, 0x9A, 0x07, 0x07, 0xF5, 0xCB, 0xB9,
	}
)

// Params holds the domain parameters of a short Weierstrass curve y² = x³ + ax + b.
type Params struct {
	P       *saferith.Modulus // the order of the underlying field
	N       *saferith.Modulus // the order of the base point
	A, B    *saferith.Nat     // the constants of the curve equation
	Gx, Gy  *saferith.Nat     // (x,y) of the base point
	BitSize int               // the size of the underlying field
	Name    string
}

var (
	aacsOnce sync.Once
	aacs     *Params
)

func initAACS() {
	aacs = &Params{
		P:       saferith.ModulusFromBytes(pBytes),
		N:       saferith.ModulusFromBytes(nBytes),
		A:       new(saferith.Nat).SetBytes(aBytes),
		B:       new(saferith.Nat).SetBytes(bBytes),
		Gx:      new(saferith.Nat).SetBytes(gxBytes),
		Gy:      new(saferith.Nat).SetBytes(gyBytes),
		BitSize: 160,
		Name:    "AACS",
	}
}

// AACS returns the AACS curve. Multiple invocations return the same value.
func AACS() *Params {
	aacsOnce.Do(initAACS)
	return aacs
}

// Point is a curve point in Jacobian coordinates.
type Point struct {
	X, Y, Z *saferith.Nat
}

// IsInfinity reports whether p is the identity element.
func (p *Point) IsInfinity() bool {
	return p.Z.EqZero() == 1
}

func (p *Point) clone() *Point {
	return &Point{
		X: new(saferith.Nat).SetNat(p.X),
		Y: new(saferith.Nat).SetNat(p.Y),
		Z: new(saferith.Nat).SetNat(p.Z),
	}
}

// Infinity returns the point at infinity.
func (c *Params) Infinity() *Point {
	return &Point{
		X: new(saferith.Nat).SetUint64(1),
		Y: new(saferith.Nat).SetUint64(1),
		Z: new(saferith.Nat).SetUint64(0),
	}
}

// Base returns the generator G.
func (c *Params) Base() *Point {
	return &Point{
		X: new(saferith.Nat).SetNat(c.Gx),
		Y: new(saferith.Nat).SetNat(c.Gy),
		Z: new(saferith.Nat).SetUint64(1),
	}
}

// NewAffinePoint returns the point (x, y, 1). Both coordinates must be CoordinateSize bytes and
// reduced modulo p. The point is not checked against the curve equation; see IsOnCurve.
func (c *Params) NewAffinePoint(x, y []byte) (*Point, error) {
	px, err := c.fieldElement(x)
	if err != nil {
		return nil, err
	}
	py, err := c.fieldElement(y)
	if err != nil {
		return nil, err
	}
	return &Point{X: px, Y: py, Z: new(saferith.Nat).SetUint64(1)}, nil
}

func (c *Params) fieldElement(buf []byte) (*saferith.Nat, error) {
	if len(buf) != CoordinateSize {
		return nil, ErrInvalidPoint
	}
	v := new(saferith.Nat).SetBytes(buf)
	if _, _, lt := v.CmpMod(c.P); lt != 1 {
		return nil, ErrInvalidPoint
	}
	return v, nil
}

// IsOnCurve reports whether the affine point (x, y) satisfies the curve equation.
func (c *Params) IsOnCurve(x, y []byte) bool {
	px, err := c.fieldElement(x)
	if err != nil {
		return false
	}
	py, err := c.fieldElement(y)
	if err != nil {
		return false
	}
	// y² = x³ + ax + b
	y2 := c.mul(py, py)
	rhs := c.mul(c.mul(px, px), px)
	rhs = c.add(rhs, c.mul(c.A, px))
	rhs = c.add(rhs, c.B)
	return y2.Eq(rhs) == 1
}

func (c *Params) mul(x, y *saferith.Nat) *saferith.Nat {
	return new(saferith.Nat).ModMul(x, y, c.P)
}

func (c *Params) add(x, y *saferith.Nat) *saferith.Nat {
	return new(saferith.Nat).ModAdd(x, y, c.P)
}

func (c *Params) sub(x, y *saferith.Nat) *saferith.Nat {
	return new(saferith.Nat).ModSub(x, y, c.P)
}

// Double returns 2p.
func (c *Params) Double(p *Point) *Point {
	if p.IsInfinity() || p.Y.EqZero() == 1 {
		return c.Infinity()
	}
	// See https://hyperelliptic.org/EFD/g1p/auto-shortw-jacobian.html#doubling-dbl-2007-bl
	xx := c.mul(p.X, p.X)
	yy := c.mul(p.Y, p.Y)
	yyyy := c.mul(yy, yy)
	zz := c.mul(p.Z, p.Z)

	// S = 2*((X1+YY)²-XX-YYYY)
	s := c.add(p.X, yy)
	s = c.mul(s, s)
	s = c.sub(s, xx)
	s = c.sub(s, yyyy)
	s = c.add(s, s)

	// M = 3*XX+a*ZZ²
	m := c.add(xx, xx)
	m = c.add(m, xx)
	m = c.add(m, c.mul(c.A, c.mul(zz, zz)))

	// X3 = M²-2*S
	x3 := c.mul(m, m)
	x3 = c.sub(x3, c.add(s, s))

	// Y3 = M*(S-X3)-8*YYYY
	y3 := c.mul(m, c.sub(s, x3))
	yyyy8 := c.add(yyyy, yyyy)
	yyyy8 = c.add(yyyy8, yyyy8)
	yyyy8 = c.add(yyyy8, yyyy8)
	y3 = c.sub(y3, yyyy8)

	// Z3 = (Y1+Z1)²-YY-ZZ
	z3 := c.add(p.Y, p.Z)
	z3 = c.mul(z3, z3)
	z3 = c.sub(z3, yy)
	z3 = c.sub(z3, zz)

	return &Point{X: x3, Y: y3, Z: z3}
}

// Add returns p1 + p2.
func (c *Params) Add(p1, p2 *Point) *Point {
	if p1.IsInfinity() {
		return p2.clone()
	}
	if p2.IsInfinity() {
		return p1.clone()
	}
	// See https://hyperelliptic.org/EFD/g1p/auto-shortw-jacobian.html#addition-add-2007-bl
	z1z1 := c.mul(p1.Z, p1.Z)
	z2z2 := c.mul(p2.Z, p2.Z)
	u1 := c.mul(p1.X, z2z2)
	u2 := c.mul(p2.X, z1z1)
	s1 := c.mul(c.mul(p1.Y, p2.Z), z2z2)
	s2 := c.mul(c.mul(p2.Y, p1.Z), z1z1)

	h := c.sub(u2, u1)
	r := c.sub(s2, s1)
	if h.EqZero() == 1 {
		if r.EqZero() == 1 {
			return c.Double(p1)
		}
		// p2 = -p1
		return c.Infinity()
	}
	r = c.add(r, r)

	i := c.add(h, h)
	i = c.mul(i, i)
	j := c.mul(h, i)
	v := c.mul(u1, i)

	// X3 = r²-J-2*V
	x3 := c.mul(r, r)
	x3 = c.sub(x3, j)
	x3 = c.sub(x3, v)
	x3 = c.sub(x3, v)

	// Y3 = r*(V-X3)-2*S1*J
	y3 := c.mul(r, c.sub(v, x3))
	s1j := c.mul(s1, j)
	y3 = c.sub(y3, c.add(s1j, s1j))

	// Z3 = ((Z1+Z2)²-Z1Z1-Z2Z2)*H
	z3 := c.add(p1.Z, p2.Z)
	z3 = c.mul(z3, z3)
	z3 = c.sub(z3, z1z1)
	z3 = c.sub(z3, z2z2)
	z3 = c.mul(z3, h)

	return &Point{X: x3, Y: y3, Z: z3}
}

// ScalarMult returns k*p, where k is a big-endian integer of any length. The scalar is not
// reduced modulo n.
func (c *Params) ScalarMult(p *Point, k []byte) *Point {
	r := c.Infinity()
	for _, b := range k {
		for bit := 7; bit >= 0; bit-- {
			r = c.Double(r)
			if (b>>uint(bit))&1 == 1 {
				r = c.Add(r, p)
			}
		}
	}
	return r
}

// ScalarBaseMult returns k*G.
func (c *Params) ScalarBaseMult(k []byte) *Point {
	return c.ScalarMult(c.Base(), k)
}

// Affine returns the affine coordinates of p as CoordinateSize-byte big-endian strings. It fails
// with ErrInvalidPoint if p is the point at infinity.
func (c *Params) Affine(p *Point) (x, y []byte, err error) {
	z := new(saferith.Nat).Mod(p.Z, c.P)
	if z.EqZero() == 1 {
		return nil, nil, ErrInvalidPoint
	}
	zinv := new(saferith.Nat).ModInverse(z, c.P)
	zinv2 := c.mul(zinv, zinv)
	zinv3 := c.mul(zinv2, zinv)

	x = make([]byte, CoordinateSize)
	y = make([]byte, CoordinateSize)
	c.mul(p.X, zinv2).FillBytes(x)
	c.mul(p.Y, zinv3).FillBytes(y)
	return x, y, nil
}

// Equal reports whether p1 and p2 represent the same point.
func (c *Params) Equal(p1, p2 *Point) bool {
	if p1.IsInfinity() || p2.IsInfinity() {
		return p1.IsInfinity() && p2.IsInfinity()
	}
	// X1*Z2² = X2*Z1² and Y1*Z2³ = Y2*Z1³
	z1z1 := c.mul(p1.Z, p1.Z)
	z2z2 := c.mul(p2.Z, p2.Z)
	if c.mul(p1.X, z2z2).Eq(c.mul(p2.X, z1z1)) != 1 {
		return false
	}
	return c.mul(p1.Y, c.mul(z2z2, p2.Z)).Eq(c.mul(p2.Y, c.mul(z1z1, p1.Z))) == 1
}
