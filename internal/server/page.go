package server

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Houeta/ems-roster/internal/lib/logger/sl"
	"github.com/Houeta/ems-roster/internal/models"
)

const pageTemplate = "roster"

var rosterPage = template.Must(template.New(pageTemplate).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Employee Management System</title>
</head>
<body>
<h1>Employees</h1>
{{if .Error}}<div class="banner error" role="alert">{{.Error}}</div>
{{else if not .Employees}}<p class="empty">No employees yet.</p>
{{else}}<table id="employees">
<thead><tr><th>Name</th><th>Employee ID</th><th>Phone</th><th>Email</th><th>Created</th></tr></thead>
<tbody>
{{range .Employees}}<tr data-id="{{.ID}}">
<td class="name">{{.Name}}</td>
<td class="employee-id">{{.EmployeeID}}</td>
<td class="phone">{{.Phone}}</td>
<td class="email">{{.Email}}</td>
<td class="created">{{.CreatedAt.Format "2006-01-02"}}</td>
</tr>
{{end}}</tbody>
</table>
{{end}}</body>
</html>
`))

type pageData struct {
	Employees []models.Employee
	Error     string
}

// Page renders the read-only roster table. Passwords are never rendered.
func (h *Handler) Page(c *gin.Context) {
	records, err := h.roster.List(c.Request.Context())
	if err != nil {
		status, body := toHTTP(err)
		h.log.ErrorContext(c.Request.Context(), "Failed to render roster page",
			"request_id", c.GetString(requestIDKey), sl.Err(err))
		c.HTML(status, pageTemplate, pageData{Error: body.Message})
		return
	}

	c.HTML(http.StatusOK, pageTemplate, pageData{Employees: records})
}
