package experiment

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Method is an apportionment method named in a method column.
// It is either a NamedMethod or a LinearDivisorMethod.
type Method interface {
	fmt.Stringer
	isMethod()
}

// NamedMethod is a divisor method identified by name only.
type NamedMethod struct {
	Name string
}

func (NamedMethod) isMethod() {}

func (m NamedMethod) String() string { return m.Name }

// LinearDivisorMethod is the divisor method d(j) = Alpha*j + Beta, written LDM(alpha,beta).
type LinearDivisorMethod struct {
	Alpha float64
	Beta  float64
}

func (LinearDivisorMethod) isMethod() {}

func (m LinearDivisorMethod) String() string {
	return "LDM(" + strconv.FormatFloat(m.Alpha, 'g', -1, 64) + "," + strconv.FormatFloat(m.Beta, 'g', -1, 64) + ")"
}

// namedMethods is ordered for error messages.
var namedMethods = []string{
	"SmallestDivisors",
	"GreatestDivisors",
	"ModifiedSainteLague",
	"SainteLague",
	"HarmonicMean",
	"EqualProportions",
	"Imperiali",
	"Danish",
}

const ldmSignature = "LDM(double,double)"

// MethodNames lists the accepted method spellings, ending with the LDM signature.
func MethodNames() []string {
	return append(append([]string(nil), namedMethods...), ldmSignature)
}

// ErrUnknownMethod is returned by ParseMethod for tokens outside the method grammar.
var ErrUnknownMethod = errors.New("unknown apportionment method")

// ldmNumber allows omitting either the integer or the fractional part, not both.
const ldmNumber = `(?:\d+\.?\d*|\.\d+)`

var (
	ldmNumberPattern = regexp.MustCompile(`^` + ldmNumber + `$`)
	methodSearch     = regexp.MustCompile(
		`(?:Smallest|Greatest)Divisors|(?:Modified)?SainteLague|HarmonicMean|EqualProportions|Imperiali|Danish|LDM\(` +
			ldmNumber + `,` + ldmNumber + `\)`)
)

// ParseMethod parses a complete method token.
func ParseMethod(token string) (Method, error) {
	for _, name := range namedMethods {
		if token == name {
			return NamedMethod{Name: name}, nil
		}
	}

	inner, ok := strings.CutPrefix(token, "LDM(")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, token)
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return nil, fmt.Errorf("%w: %q is missing ')'", ErrUnknownMethod, token)
	}
	args := strings.Split(inner, ",")
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: %q needs exactly two parameters", ErrUnknownMethod, token)
	}

	alpha, err := parseLDMNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: alpha: %v", ErrUnknownMethod, token, err)
	}
	beta, err := parseLDMNumber(args[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: beta: %v", ErrUnknownMethod, token, err)
	}
	return LinearDivisorMethod{Alpha: alpha, Beta: beta}, nil
}

// FindMethod returns the first method embedded anywhere in token.
func FindMethod(token string) (Method, bool) {
	match := methodSearch.FindString(token)
	if match == "" {
		return nil, false
	}
	m, err := ParseMethod(match)
	if err != nil {
		return nil, false
	}
	return m, true
}

func parseLDMNumber(s string) (float64, error) {
	if !ldmNumberPattern.MatchString(s) {
		return 0, fmt.Errorf("%q is not a decimal number", s)
	}
	return strconv.ParseFloat(s, 64)
}
