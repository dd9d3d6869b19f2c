package auth

// PermSessionsRead guards access to the session audit trail.
const PermSessionsRead = "security.sessions.read"

// BuiltinPermissions are seeded by the migration tooling.
var BuiltinPermissions = []Permission{
	{Name: "visits.read", Description: "View technical visits"},
	{Name: "visits.write", Description: "Create and edit technical visits"},
	{Name: "people.read", Description: "View person records"},
	{Name: "meetings.read", Description: "View meeting records"},
	{Name: "reports.generate", Description: "Generate visit reports"},
	{Name: PermSessionsRead, Description: "View issued session tokens"},
}
