package reference

// Category names the kind of label being resolved.
type Category string

const (
	CategoryProcess    Category = "process"
	CategoryDepartment Category = "department"
	CategoryEmployee   Category = "employee"
	CategoryCompany    Category = "company"
)

// Categories lists every category in report order.
var Categories = []Category{CategoryProcess, CategoryDepartment, CategoryEmployee, CategoryCompany}

// Resolver maps free-text labels to canonical identities. It holds no
// mutable state after construction and is safe for concurrent reads.
type Resolver struct {
	process     Chain
	company     Chain
	employee    Chain
	department  Chain
	processName map[string]string
}

// NewResolver builds the strategy chains for t. Process resolution tries
// the correction table, then synonyms, then the canonical table. Company
// resolution tries the typo table, the canonical table, then the row's
// department alias map exactly and finally under loose comparison.
func NewResolver(t *Tables) *Resolver {
	fixes := make(map[correctionKey]string, len(t.ProcessCorrections))
	for _, c := range t.ProcessCorrections {
		fixes[correctionKey{process: c.Process, mainTask: c.MainTask}] = c.Canonical
	}

	exactAliases := make(map[string]map[string]string, len(t.DepartmentCompanies))
	foldedAliases := make(map[string]map[string]string, len(t.DepartmentCompanies))
	for dept, aliases := range t.DepartmentCompanies {
		deptID := t.Departments[dept]
		if exactAliases[deptID] == nil {
			exactAliases[deptID] = make(map[string]string)
			foldedAliases[deptID] = make(map[string]string)
		}
		for label, id := range aliases {
			exactAliases[deptID][label] = id
			foldedAliases[deptID][foldLabel(label)] = id
		}
	}

	names := make(map[string]string, len(t.Processes))
	for name, id := range t.Processes {
		names[id] = name
	}

	return &Resolver{
		process: Chain{
			correctionStrategy{fixes: fixes, canonical: t.Processes},
			aliasStrategy{kind: ViaSynonym, aliases: t.ProcessSynonyms, canonical: t.Processes},
			exactStrategy{kind: ViaCanonical, table: t.Processes},
		},
		company: Chain{
			aliasStrategy{kind: ViaTypo, aliases: t.CompanyTypos, canonical: t.Companies},
			exactStrategy{kind: ViaCanonical, table: t.Companies},
			departmentAliasStrategy{departments: t.Departments, aliases: exactAliases},
			departmentAliasStrategy{departments: t.Departments, aliases: foldedAliases, folded: true},
		},
		employee:    Chain{exactStrategy{kind: ViaExact, table: t.Employees}},
		department:  Chain{exactStrategy{kind: ViaExact, table: t.Departments}},
		processName: names,
	}
}

func (r *Resolver) Process(label, mainTask string) Match {
	return r.process.Resolve(Query{Label: label, MainTask: mainTask})
}

func (r *Resolver) Company(label, department string) Match {
	return r.company.Resolve(Query{Label: label, Department: department})
}

func (r *Resolver) Employee(label string) Match {
	return r.employee.Resolve(Query{Label: label})
}

func (r *Resolver) Department(label string) Match {
	return r.department.Resolve(Query{Label: label})
}

// ProcessName returns the canonical name for a process identity.
func (r *Resolver) ProcessName(id string) string {
	return r.processName[id]
}
