package scenario

import "fmt"

// LocatorKind selects how an element is found
type LocatorKind string

const (
	// KindLabel matches form controls by their accessible label
	KindLabel LocatorKind = "label"
	// KindRole matches elements by ARIA role and accessible name
	KindRole LocatorKind = "role"
	// KindText matches elements by visible text
	KindText LocatorKind = "text"
)

// Role is an ARIA role, explicit or implicit
type Role string

const (
	RoleButton  Role = "button"
	RoleLink    Role = "link"
	RoleHeading Role = "heading"
	RoleTextbox Role = "textbox"
)

// Locator is an accessible element lookup. It never refers to ids, classes or
// DOM structure.
type Locator struct {
	Kind LocatorKind
	Role Role
	Name Pattern
}

// ByLabel finds the control whose label matches name
func ByLabel(name Pattern) Locator {
	return Locator{Kind: KindLabel, Name: name}
}

// ByRole finds an element with the given role whose accessible name matches name
func ByRole(role Role, name Pattern) Locator {
	return Locator{Kind: KindRole, Role: role, Name: name}
}

// ByText finds the innermost element whose visible text matches text
func ByText(text Pattern) Locator {
	return Locator{Kind: KindText, Name: text}
}

func (l Locator) String() string {
	switch l.Kind {
	case KindLabel:
		return fmt.Sprintf("label %s", l.Name)
	case KindRole:
		return fmt.Sprintf("%s %s", l.Role, l.Name)
	case KindText:
		return fmt.Sprintf("text %s", l.Name)
	default:
		return fmt.Sprintf("%s %s", l.Kind, l.Name)
	}
}
