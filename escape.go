package mandel

// escapeRadius2 is the squared escape radius, |z| >= 2.
const escapeRadius2 = 4

// Bounded iterates z = z*z + c from z = 0 and reports whether z stays
// inside the escape radius for all maxIter iterations.
func Bounded(c complex128, maxIter int) bool {
	z := complex(0, 0)
	for range maxIter {
		z = z*z + c
		if real(z)*real(z)+imag(z)*imag(z) >= escapeRadius2 {
			return false
		}
	}
	return true
}

// Escape is Bounded with the number of iterations actually performed.
// For an escaping point n is the iteration at which it left the radius;
// for a bounded point n == maxIter.
func Escape(c complex128, maxIter int) (n int, bounded bool) {
	z := complex(0, 0)
	for i := range maxIter {
		z = z*z + c
		if real(z)*real(z)+imag(z)*imag(z) >= escapeRadius2 {
			return i + 1, false
		}
	}
	return maxIter, true
}
