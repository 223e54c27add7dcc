package safemath

import (
	"errors"
)

var ErrOverflow = errors.New("number overflow")

type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

func signed[T Integer]() bool {
	return ^T(0) < 0
}

func minValue[T Integer]() T {
	if !signed[T]() {
		return 0
	}
	// 1000...0 for the width of T
	var m T = 1
	for m<<1 != 0 {
		m <<= 1
	}
	return m
}

// Add returns a+b and false if the result wrapped around.
func Add[T Integer](a, b T) (T, bool) {
	c := a + b
	if signed[T]() {
		return c, (b >= 0) == (c >= a)
	}
	return c, c >= a
}

// Sub returns a-b and false if the result wrapped around.
func Sub[T Integer](a, b T) (T, bool) {
	c := a - b
	if signed[T]() {
		return c, (b >= 0) == (c <= a)
	}
	return c, a >= b
}

// Mul returns a*b and false if the result wrapped around.
func Mul[T Integer](a, b T) (T, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if signed[T]() {
		lo, neg := minValue[T](), ^T(0)
		if (a == neg && b == lo) || (b == neg && a == lo) {
			return c, false
		}
	}
	return c, c/b == a
}
