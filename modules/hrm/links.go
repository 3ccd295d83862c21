package hrm

import "github.com/campus-hr/hrdesk/pkg/application"

// Each href is the GET endpoint the dashboard screen loads first.

var BulkImportLink = application.NavigationItem{
	Name: "Bulk Import",
	Href: "/hrm/api/imports/fields",
}

var LeaveLink = application.NavigationItem{
	Name: "Leave Requests",
	Href: "/hrm/api/leave/statuses",
}

var HRMLink = application.NavigationItem{
	Name: "HRM",
	Href: "/hrm/api/nav",
	Children: []application.NavigationItem{
		BulkImportLink,
		LeaveLink,
	},
}

var NavItems = []application.NavigationItem{
	HRMLink,
}
