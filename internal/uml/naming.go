package uml

import "regexp"

var (
	packageNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	classNamePattern   = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)
	memberNamePattern  = regexp.MustCompile(`^[a-z][A-Za-z0-9_]*$`)
)

// ValidPackageName reports whether name is lower case, starting with a letter.
func ValidPackageName(name string) bool {
	return packageNamePattern.MatchString(name)
}

// ValidClassName reports whether name is UpperCamelCase.
func ValidClassName(name string) bool {
	return classNamePattern.MatchString(name)
}

// ValidMemberName reports whether name is lowerCamelCase.
func ValidMemberName(name string) bool {
	return memberNamePattern.MatchString(name)
}

// NamingViolation returns a description of the convention e breaks, or "" if none.
// Primitive classes, the model root and the default package are exempt.
func NamingViolation(e *Element) string {
	switch e.Kind {
	case KindPackage:
		if e.XMIID != DefaultPackageXMIID && !ValidPackageName(e.Name) {
			return "package names should be lower case"
		}
	case KindClass, KindLocalValueDomain:
		if !e.IsPrimitive() && !ValidClassName(e.Name) {
			return "class names should start with an upper-case letter"
		}
	case KindMember:
		if !ValidMemberName(e.Name) {
			return "member names should start with a lower-case letter"
		}
	case KindModel:
	}
	return ""
}
