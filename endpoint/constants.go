package endpoint

// Endpoint constants represent the URL suffixes of the Fidelis Endpoint API, relative to the API root.
const (
	APIName               = "fidelis endpoint"         // APIName: represents the name of the API.
	APIPath               = "/endpoint/api/"           // APIPath: the API root on the appliance host.
	uriAlerts             = "alerts"                   // uriAlerts: single alerts, addressed as alerts/{id}.
	uriAlertsList         = "alerts/getalertsV2"       // uriAlertsList: paged alert search.
	uriAlertsUpdateStatus = "alerts/UpdateAlertStatus" // uriAlertsUpdateStatus: bulk status change.
	uriAlertsDelete       = "alerts/deleteAlerts"      // uriAlertsDelete: bulk delete.
	uriAlertRules         = "alertrules"               // uriAlertRules: alert rule collection, addressed as alertrules/{id}.
	iso8601Layout         = "2006-01-02T15:04:05Z"     // iso8601Layout: the date format the API accepts in query parameters.
)
