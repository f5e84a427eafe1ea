package export

import (
	"fmt"
	"sort"
	"strings"
)

// Organizer adds an overview on top of a model export:
// a package map with counts and the connections between packages.
type Organizer struct {
	export *ModelExport
}

// NewOrganizer creates a new organizer.
func NewOrganizer(export *ModelExport) *Organizer {
	return &Organizer{export: export}
}

// PackageSummary is a one-line overview of a package.
type PackageSummary struct {
	QualifiedName string   `json:"qualifiedName" yaml:"qualifiedName"`
	ClassCount    int      `json:"classCount" yaml:"classCount"`
	MemberCount   int      `json:"memberCount" yaml:"memberCount"`
	ProblemCount  int      `json:"problemCount" yaml:"problemCount"`
	Problems      []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// PackageBridge counts references from classes of one package to classes of another.
type PackageBridge struct {
	FromPackage     string `json:"fromPackage" yaml:"fromPackage"`
	ToPackage       string `json:"toPackage" yaml:"toPackage"`
	Generalizations int    `json:"generalizations" yaml:"generalizations"`
	TypeReferences  int    `json:"typeReferences" yaml:"typeReferences"`
}

// Total is the number of references the bridge carries.
func (b PackageBridge) Total() int {
	return b.Generalizations + b.TypeReferences
}

// OrganizedExport contains the structured output.
type OrganizedExport struct {
	PackageMap []PackageSummary `json:"packageMap" yaml:"packageMap"`
	Bridges    []PackageBridge  `json:"bridges,omitempty" yaml:"bridges,omitempty"`

	TotalClasses  int `json:"totalClasses" yaml:"totalClasses"`
	TotalProblems int `json:"totalProblems" yaml:"totalProblems"`
}

// Organize builds the package map and the bridges.
func (o *Organizer) Organize() *OrganizedExport {
	if o.export == nil {
		return &OrganizedExport{}
	}

	result := &OrganizedExport{
		PackageMap: make([]PackageSummary, 0, len(o.export.Packages)),
	}
	for _, pkg := range o.export.Packages {
		summary := PackageSummary{
			QualifiedName: pkg.QualifiedName,
			ClassCount:    len(pkg.Classes),
		}
		for _, c := range pkg.Classes {
			summary.MemberCount += len(c.Members)
			if hasProblem(c) {
				summary.ProblemCount++
				summary.Problems = append(summary.Problems, c.Name)
			}
		}
		result.TotalClasses += summary.ClassCount
		result.TotalProblems += summary.ProblemCount
		result.PackageMap = append(result.PackageMap, summary)
	}

	// Packages with problems first, then the largest
	sort.SliceStable(result.PackageMap, func(i, j int) bool {
		a, b := result.PackageMap[i], result.PackageMap[j]
		if a.ProblemCount != b.ProblemCount {
			return a.ProblemCount > b.ProblemCount
		}
		return a.ClassCount > b.ClassCount
	})

	result.Bridges = o.detectBridges()
	return result
}

// detectBridges follows resolved superclasses and member types that leave
// the package of the referencing class.
func (o *Organizer) detectBridges() []PackageBridge {
	bridges := make(map[[2]string]*PackageBridge)
	get := func(from, to string) *PackageBridge {
		key := [2]string{from, to}
		b, ok := bridges[key]
		if !ok {
			b = &PackageBridge{FromPackage: from, ToPackage: to}
			bridges[key] = b
		}
		return b
	}

	for _, pkg := range o.export.Packages {
		for _, c := range pkg.Classes {
			if to, ok := packageOf(c.SuperClass); ok && to != pkg.QualifiedName {
				get(pkg.QualifiedName, to).Generalizations++
			}
			for _, m := range c.Members {
				if to, ok := packageOf(m.ResolvedType); ok && to != pkg.QualifiedName {
					get(pkg.QualifiedName, to).TypeReferences++
				}
			}
		}
	}

	out := make([]PackageBridge, 0, len(bridges))
	for _, b := range bridges {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total() != out[j].Total() {
			return out[i].Total() > out[j].Total()
		}
		if out[i].FromPackage != out[j].FromPackage {
			return out[i].FromPackage < out[j].FromPackage
		}
		return out[i].ToPackage < out[j].ToPackage
	})
	return out
}

// packageOf returns the package part of a qualified class name.
func packageOf(qualified string) (string, bool) {
	i := strings.LastIndex(qualified, ".")
	if i <= 0 {
		return "", false
	}
	return qualified[:i], true
}

// FormatOrganizedText renders the overview.
func (o *Organizer) FormatOrganizedText(org *OrganizedExport) string {
	var sb strings.Builder

	sb.WriteString("## Package Map\n")
	sb.WriteString(fmt.Sprintf("| %-40s | %7s | %7s | %8s |\n", "Package", "Classes", "Members", "Problems"))
	sb.WriteString(fmt.Sprintf("|%s|%s|%s|%s|\n", strings.Repeat("-", 42), strings.Repeat("-", 9), strings.Repeat("-", 9), strings.Repeat("-", 10)))
	for _, p := range org.PackageMap {
		sb.WriteString(fmt.Sprintf("| %-40s | %7d | %7d | %8d |\n", p.QualifiedName, p.ClassCount, p.MemberCount, p.ProblemCount))
	}
	sb.WriteString("\n")

	if len(org.Bridges) > 0 {
		sb.WriteString("## Package Bridges\n")
		for _, b := range org.Bridges {
			sb.WriteString(fmt.Sprintf("  %s -> %s (%d generalizations, %d type references)\n",
				b.FromPackage, b.ToPackage, b.Generalizations, b.TypeReferences))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Total: %d packages, %d classes, %d with problems\n",
		len(org.PackageMap), org.TotalClasses, org.TotalProblems))
	return sb.String()
}
