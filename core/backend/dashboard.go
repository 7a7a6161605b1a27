package backend

import (
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/sirupsen/logrus"

	"github.com/tav360/crm-backend/core/logger"
)

// entities the dashboard aggregates over
var dashboardEntities = []string{
	"contact", "property", "client", "meeting", "servicecall",
	"supplier", "project", "projectlead", "marketinglead",
	"propertyowner", "tenant", "match",
}

// percentChange renders the change between two counts the way the
// dashboard shows it. A previous count of zero means +100% growth if
// there is anything now, otherwise 0%.
func percentChange(current, previous int) string {
	if previous == 0 {
		if current > 0 {
			return "+100%"
		}
		return "0%"
	}
	change := float64(current-previous) / float64(previous) * 100
	sign := ""
	if change >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.0f%%", sign, change)
}

// formatThousands renders a price with thousands separators, e.g. 1,250,000
func formatThousands(v float64) string {
	n := int64(math.Round(v))
	s := strconv.FormatInt(n, 10)
	start := 0
	if n < 0 {
		start = 1
	}
	for i := len(s) - 3; i > start; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

func isoTime(t sql.NullTime) interface{} {
	if !t.Valid {
		return nil
	}
	return t.Time.UTC().Format(time.RFC3339Nano)
}

// handleDashboardRoutes adds the read-only statistics routes. The routes
// are only registered when all aggregated entities are part of the
// catalogue.
func (b *Backend) handleDashboardRoutes(router *mux.Router) {
	nillog := logger.Default()

	tables := map[string]string{}
	for _, name := range dashboardEntities {
		d, ok := b.registry.Resolve(name)
		if !ok || d.Upstream {
			nillog.Debugln("dashboard routes disabled, catalogue has no entity", name)
			return
		}
		tables[name] = fmt.Sprintf("%s.\"%s\"", b.db.Schema, d.Table)
	}

	nillog.Debugln("  handle dashboard routes: /dashboard/stats/main GET")
	nillog.Debugln("  handle dashboard routes: /dashboard/stats/brokerage GET")
	nillog.Debugln("  handle dashboard routes: /dashboard/stats/projects GET")
	nillog.Debugln("  handle dashboard routes: /dashboard/stats/property-management GET")
	nillog.Debugln("  handle dashboard routes: /dashboard/recent-activity GET")
	nillog.Debugln("  handle dashboard routes: /dashboard/alerts GET")

	count := func(rlog *logrus.Entry, query string, args ...interface{}) (int, error) {
		var n int
		err := b.db.QueryRow(query, args...).Scan(&n)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4741: cannot execute query `%s`", query)
		}
		return n, err
	}

	mainStats := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		now := time.Now().UTC()
		weekAgo := now.AddDate(0, 0, -7)
		twoWeeksAgo := now.AddDate(0, 0, -14)
		weekStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		weekEnd := weekStart.AddDate(0, 0, 7)

		type query struct {
			result *int
			query  string
			args   []interface{}
		}
		var (
			totalProperties, propertiesLastWeek, propertiesPrevWeek int
			totalBuyers, buyersLastWeek, buyersPrevWeek             int
			openServiceCalls, newServiceCalls, meetingsThisWeek     int
		)
		queries := []query{
			{&totalProperties, "SELECT count(*) FROM " + tables["property"] + ";", nil},
			{&propertiesLastWeek, "SELECT count(*) FROM " + tables["property"] + " WHERE created_date >= $1;", []interface{}{weekAgo}},
			{&propertiesPrevWeek, "SELECT count(*) FROM " + tables["property"] + " WHERE created_date >= $1 AND created_date < $2;", []interface{}{twoWeeksAgo, weekAgo}},
			{&totalBuyers, "SELECT count(*) FROM " + tables["client"] + ";", nil},
			{&buyersLastWeek, "SELECT count(*) FROM " + tables["client"] + " WHERE created_date >= $1;", []interface{}{weekAgo}},
			{&buyersPrevWeek, "SELECT count(*) FROM " + tables["client"] + " WHERE created_date >= $1 AND created_date < $2;", []interface{}{twoWeeksAgo, weekAgo}},
			{&openServiceCalls, "SELECT count(*) FROM " + tables["servicecall"] + " WHERE status != 'closed';", nil},
			{&newServiceCalls, "SELECT count(*) FROM " + tables["servicecall"] + " WHERE status = 'open';", nil},
			{&meetingsThisWeek, "SELECT count(*) FROM " + tables["meeting"] + " WHERE start_date >= $1 AND start_date < $2;", []interface{}{weekStart, weekEnd}},
		}
		for _, q := range queries {
			n, err := count(rlog, q.query, q.args...)
			if err != nil {
				http.Error(w, "Error 4741", http.StatusInternalServerError)
				return
			}
			*q.result = n
		}

		response := map[string]interface{}{
			"properties": map[string]interface{}{
				"total":  totalProperties,
				"change": percentChange(propertiesLastWeek, propertiesPrevWeek),
			},
			"buyers": map[string]interface{}{
				"total":  totalBuyers,
				"change": percentChange(buyersLastWeek, buyersPrevWeek),
			},
			"meetings": map[string]interface{}{
				"this_week": meetingsThisWeek,
				"change":    fmt.Sprintf("%d השבוע", meetingsThisWeek),
			},
			"service_calls": map[string]interface{}{
				"open":   openServiceCalls,
				"new":    newServiceCalls,
				"change": fmt.Sprintf("%d חדשות", newServiceCalls),
			},
		}
		jsonData, _ := json.MarshalWithOption(response, json.DisableHTMLEscape())
		writeJSON(w, http.StatusOK, jsonData)
	}

	// the property type labels buyers use for each property category,
	// including a legacy label still present in older records
	residentialBuyerTypes := []string{"דירה", "בית פרטי", "בית"}
	officeBuyerTypes := []string{"משרד", "מסחרי"}

	brokerageStats := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		category := r.URL.Query().Get("category")

		propertiesQuery := "SELECT count(*) FROM " + tables["property"]
		buyersQuery := "SELECT count(*) FROM " + tables["client"]
		matchesQuery := "SELECT count(*) FROM " + tables["match"] + " m" +
			" JOIN " + tables["property"] + " p ON m.property_id = p.id" +
			" JOIN " + tables["client"] + " c ON m.client_id = c.id"
		marketingLeadsQuery := "SELECT count(*) FROM " + tables["marketinglead"] + ";"

		var buyerTypes []string
		switch category {
		case "מגורים":
			buyerTypes = residentialBuyerTypes
		case "משרדים":
			buyerTypes = officeBuyerTypes
		}

		var propertiesArgs, buyersArgs, matchesArgs []interface{}
		if buyerTypes != nil {
			propertiesQuery += " WHERE category = $1"
			propertiesArgs = []interface{}{category}

			typeList := ""
			for i := range buyerTypes {
				if i > 0 {
					typeList += ","
				}
				typeList += "$" + strconv.Itoa(i+1)
				buyersArgs = append(buyersArgs, buyerTypes[i])
			}
			buyersQuery += " WHERE preferred_property_type IN (" + typeList + ")"

			matchTypeList := ""
			matchesArgs = []interface{}{category}
			for i := range buyerTypes {
				if i > 0 {
					matchTypeList += ","
				}
				matchTypeList += "$" + strconv.Itoa(i+2)
				matchesArgs = append(matchesArgs, buyerTypes[i])
			}
			// a match must also agree on the transaction type, accepting
			// both label variants for sale and rent
			matchesQuery += " WHERE p.category = $1 AND c.preferred_property_type IN (" + matchTypeList + ")" +
				" AND (p.listing_type = c.request_type" +
				" OR (p.listing_type = 'מכירה' AND c.request_type = 'קנייה')" +
				" OR (p.listing_type = 'השכרה' AND c.request_type = 'שכירות'))"
		}

		propertiesCount, err := count(rlog, propertiesQuery+";", propertiesArgs...)
		if err != nil {
			http.Error(w, "Error 4741", http.StatusInternalServerError)
			return
		}
		buyersCount, err := count(rlog, buyersQuery+";", buyersArgs...)
		if err != nil {
			http.Error(w, "Error 4741", http.StatusInternalServerError)
			return
		}
		matchesCount, err := count(rlog, matchesQuery+";", matchesArgs...)
		if err != nil {
			http.Error(w, "Error 4741", http.StatusInternalServerError)
			return
		}
		marketingLeadsCount, err := count(rlog, marketingLeadsQuery)
		if err != nil {
			http.Error(w, "Error 4741", http.StatusInternalServerError)
			return
		}

		jsonData, _ := json.MarshalWithOption(map[string]int{
			"properties":      propertiesCount,
			"buyers":          buyersCount,
			"matches":         matchesCount,
			"marketing_leads": marketingLeadsCount,
		}, json.DisableHTMLEscape())
		writeJSON(w, http.StatusOK, jsonData)
	}

	projectsStats := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		totalProjects, err := count(rlog, "SELECT count(*) FROM "+tables["project"]+";")
		if err != nil {
			http.Error(w, "Error 4741", http.StatusInternalServerError)
			return
		}
		activeProjects, err := count(rlog, "SELECT count(*) FROM "+tables["project"]+" WHERE status = 'פתוח לדיירים';")
		if err != nil {
			http.Error(w, "Error 4741", http.StatusInternalServerError)
			return
		}
		totalProjectLeads, err := count(rlog, "SELECT count(*) FROM "+tables["projectlead"]+";")
		if err != nil {
			http.Error(w, "Error 4741", http.StatusInternalServerError)
			return
		}
		totalMarketingLeads, err := count(rlog, "SELECT count(*) FROM "+tables["marketinglead"]+";")
		if err != nil {
			http.Error(w, "Error 4741", http.StatusInternalServerError)
			return
		}

		jsonData, _ := json.Marshal(map[string]int{
			"total_projects":        totalProjects,
			"active_projects":       activeProjects,
			"total_project_leads":   totalProjectLeads,
			"total_marketing_leads": totalMarketingLeads,
		})
		writeJSON(w, http.StatusOK, jsonData)
	}

	propertyManagementStats := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		totalOwners, err := count(rlog, "SELECT count(*) FROM "+tables["propertyowner"]+";")
		if err != nil {
			http.Error(w, "Error 4741", http.StatusInternalServerError)
			return
		}
		totalTenants, err := count(rlog, "SELECT count(*) FROM "+tables["tenant"]+";")
		if err != nil {
			http.Error(w, "Error 4741", http.StatusInternalServerError)
			return
		}
		activeCalls, err := count(rlog, "SELECT count(*) FROM "+tables["servicecall"]+" WHERE status = 'open' OR status = 'in_progress';")
		if err != nil {
			http.Error(w, "Error 4741", http.StatusInternalServerError)
			return
		}
		totalSuppliers, err := count(rlog, "SELECT count(*) FROM "+tables["supplier"]+";")
		if err != nil {
			http.Error(w, "Error 4741", http.StatusInternalServerError)
			return
		}

		jsonData, _ := json.Marshal(map[string]int{
			"total_owners":    totalOwners,
			"total_tenants":   totalTenants,
			"active_calls":    activeCalls,
			"total_suppliers": totalSuppliers,
		})
		writeJSON(w, http.StatusOK, jsonData)
	}

	type activity struct {
		Type     string      `json:"type"`
		ID       int64       `json:"id"`
		Title    string      `json:"title"`
		Subtitle string      `json:"subtitle"`
		Status   string      `json:"status"`
		Time     interface{} `json:"time"`
	}

	recentActivity := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		limit := 10
		if value := r.URL.Query().Get("limit"); value != "" {
			var err error
			limit, err = strconv.Atoi(value)
			if err != nil || limit < 1 {
				http.Error(w, "parameter 'limit': out of range", http.StatusBadRequest)
				return
			}
		}

		activities := []activity{}

		rows, err := b.db.Query("SELECT id, property_type, city, rooms, price, status, created_date FROM " +
			tables["property"] + " ORDER BY created_date DESC LIMIT 3;")
		if err != nil {
			rlog.WithError(err).Errorf("Error 4742: recent properties")
			http.Error(w, "Error 4742", http.StatusInternalServerError)
			return
		}
		for rows.Next() {
			var id int64
			var propertyType, city, status sql.NullString
			var rooms sql.NullInt64
			var price sql.NullFloat64
			var createdDate sql.NullTime
			if err := rows.Scan(&id, &propertyType, &city, &rooms, &price, &status, &createdDate); err != nil {
				rows.Close()
				rlog.WithError(err).Errorf("Error 4743: cannot scan values")
				http.Error(w, "Error 4743", http.StatusInternalServerError)
				return
			}
			subtitle := fmt.Sprintf("%d חדרים", rooms.Int64)
			if price.Valid && price.Float64 != 0 {
				subtitle = fmt.Sprintf("%d חדרים • %s ₪", rooms.Int64, formatThousands(price.Float64))
			}
			activities = append(activities, activity{
				Type:     "property",
				ID:       id,
				Title:    fmt.Sprintf("נכס חדש: %s ב%s", orDefault(propertyType, "לא מוגדר"), orDefault(city, "לא מוגדר")),
				Subtitle: subtitle,
				Status:   orDefault(status, "נכס חדש"),
				Time:     isoTime(createdDate),
			})
		}
		rows.Close()

		rows, err = b.db.Query("SELECT id, preferred_property_type, budget, status, created_date FROM " +
			tables["client"] + " ORDER BY created_date DESC LIMIT 3;")
		if err != nil {
			rlog.WithError(err).Errorf("Error 4742: recent buyers")
			http.Error(w, "Error 4742", http.StatusInternalServerError)
			return
		}
		for rows.Next() {
			var id int64
			var preferredType, status sql.NullString
			var budget sql.NullFloat64
			var createdDate sql.NullTime
			if err := rows.Scan(&id, &preferredType, &budget, &status, &createdDate); err != nil {
				rows.Close()
				rlog.WithError(err).Errorf("Error 4743: cannot scan values")
				http.Error(w, "Error 4743", http.StatusInternalServerError)
				return
			}
			subtitle := orDefault(preferredType, "לא מוגדר")
			if budget.Valid && budget.Float64 != 0 {
				subtitle = fmt.Sprintf("%s • תקציב: %s ₪", orDefault(preferredType, "לא מוגדר"), formatThousands(budget.Float64))
			}
			activities = append(activities, activity{
				Type:     "buyer",
				ID:       id,
				Title:    "קונה חדש מעוניין",
				Subtitle: subtitle,
				Status:   orDefault(status, "קונה חדש"),
				Time:     isoTime(createdDate),
			})
		}
		rows.Close()

		rows, err = b.db.Query("SELECT id, title, start_date, created_date FROM " +
			tables["meeting"] + " ORDER BY created_date DESC LIMIT 3;")
		if err != nil {
			rlog.WithError(err).Errorf("Error 4742: recent meetings")
			http.Error(w, "Error 4742", http.StatusInternalServerError)
			return
		}
		for rows.Next() {
			var id int64
			var title sql.NullString
			var startDate, createdDate sql.NullTime
			if err := rows.Scan(&id, &title, &startDate, &createdDate); err != nil {
				rows.Close()
				rlog.WithError(err).Errorf("Error 4743: cannot scan values")
				http.Error(w, "Error 4743", http.StatusInternalServerError)
				return
			}
			subtitle := "תאריך לא מוגדר"
			if startDate.Valid {
				subtitle = startDate.Time.Format("02/01/2006 15:04")
			}
			activities = append(activities, activity{
				Type:     "meeting",
				ID:       id,
				Title:    fmt.Sprintf("פגישה: %s", orDefault(title, "לא מוגדר")),
				Subtitle: subtitle,
				Status:   "נקבעה",
				Time:     isoTime(createdDate),
			})
		}
		rows.Close()

		rows, err = b.db.Query("SELECT id, call_number, description, status, created_date FROM " +
			tables["servicecall"] + " ORDER BY created_date DESC LIMIT 3;")
		if err != nil {
			rlog.WithError(err).Errorf("Error 4742: recent service calls")
			http.Error(w, "Error 4742", http.StatusInternalServerError)
			return
		}
		for rows.Next() {
			var id int64
			var callNumber, description, status sql.NullString
			var createdDate sql.NullTime
			if err := rows.Scan(&id, &callNumber, &description, &status, &createdDate); err != nil {
				rows.Close()
				rlog.WithError(err).Errorf("Error 4743: cannot scan values")
				http.Error(w, "Error 4743", http.StatusInternalServerError)
				return
			}
			subtitle := "אין תיאור"
			if description.Valid && description.String != "" {
				subtitle = description.String
				if len([]rune(subtitle)) > 50 {
					subtitle = string([]rune(subtitle)[:50]) + "..."
				}
			}
			activities = append(activities, activity{
				Type:     "service",
				ID:       id,
				Title:    "קריאת שירות #" + orDefault(callNumber, lastDigits(id, 4)),
				Subtitle: subtitle,
				Status:   status.String,
				Time:     isoTime(createdDate),
			})
		}
		rows.Close()

		// newest first across all types, missing timestamps sort last
		sort.SliceStable(activities, func(i, j int) bool {
			return timeKey(activities[i].Time) > timeKey(activities[j].Time)
		})
		if len(activities) > limit {
			activities = activities[:limit]
		}

		jsonData, _ := json.MarshalWithOption(activities, json.DisableHTMLEscape())
		writeJSON(w, http.StatusOK, jsonData)
	}

	alerts := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())
		now := time.Now().UTC()
		fourHoursAgo := now.Add(-4 * time.Hour)
		oneDayAgo := now.AddDate(0, 0, -1)
		tomorrow := now.AddDate(0, 0, 1)

		untreatedLeads := []interface{}{}
		rows, err := b.db.Query("SELECT c.id, c.created_date, c.preferred_property_type, c.request_type, c.budget, ct.id, ct.full_name FROM "+
			tables["client"]+" c JOIN "+tables["contact"]+" ct ON c.contact_id = ct.id"+
			" WHERE c.status = 'קונה חדש' AND c.created_date <= $1;", fourHoursAgo)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4744: untreated leads")
			http.Error(w, "Error 4744", http.StatusInternalServerError)
			return
		}
		for rows.Next() {
			var id, contactID int64
			var createdDate sql.NullTime
			var preferredType, requestType, fullName sql.NullString
			var budget sql.NullFloat64
			if err := rows.Scan(&id, &createdDate, &preferredType, &requestType, &budget, &contactID, &fullName); err != nil {
				rows.Close()
				rlog.WithError(err).Errorf("Error 4743: cannot scan values")
				http.Error(w, "Error 4743", http.StatusInternalServerError)
				return
			}
			hoursAgo := 0
			if createdDate.Valid {
				hoursAgo = int(now.Sub(createdDate.Time).Hours())
			}
			untreatedLeads = append(untreatedLeads, map[string]interface{}{
				"id": id,
				"contact": map[string]interface{}{
					"id":        contactID,
					"full_name": nullableString(fullName),
				},
				"created_date":          isoTime(createdDate),
				"hours_ago":             hoursAgo,
				"desired_property_type": nullableString(preferredType),
				"request_category":      nullableString(requestType),
				"budget":                nullableFloat(budget),
			})
		}
		rows.Close()

		recentMatches := []interface{}{}
		rows, err = b.db.Query("SELECT id, match_score, created_date FROM "+tables["match"]+
			" WHERE created_date >= $1 ORDER BY created_date DESC LIMIT 5;", oneDayAgo)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4744: recent matches")
			http.Error(w, "Error 4744", http.StatusInternalServerError)
			return
		}
		for rows.Next() {
			var id int64
			var matchScore sql.NullInt64
			var createdDate sql.NullTime
			if err := rows.Scan(&id, &matchScore, &createdDate); err != nil {
				rows.Close()
				rlog.WithError(err).Errorf("Error 4743: cannot scan values")
				http.Error(w, "Error 4743", http.StatusInternalServerError)
				return
			}
			recentMatches = append(recentMatches, map[string]interface{}{
				"id":           id,
				"match_score":  nullableInt(matchScore),
				"created_date": isoTime(createdDate),
			})
		}
		rows.Close()

		urgentServiceCalls := []interface{}{}
		rows, err = b.db.Query("SELECT id, call_number, urgency, description, status FROM " + tables["servicecall"] +
			" WHERE urgency = 'דחוף' OR urgency = 'גבוהה' ORDER BY created_date DESC LIMIT 10;")
		if err != nil {
			rlog.WithError(err).Errorf("Error 4744: urgent service calls")
			http.Error(w, "Error 4744", http.StatusInternalServerError)
			return
		}
		for rows.Next() {
			var id int64
			var callNumber, urgency, description, status sql.NullString
			if err := rows.Scan(&id, &callNumber, &urgency, &description, &status); err != nil {
				rows.Close()
				rlog.WithError(err).Errorf("Error 4743: cannot scan values")
				http.Error(w, "Error 4743", http.StatusInternalServerError)
				return
			}
			urgentServiceCalls = append(urgentServiceCalls, map[string]interface{}{
				"id":          id,
				"call_number": orDefault(callNumber, lastDigits(id, 4)),
				"urgency":     nullableString(urgency),
				"description": nullableString(description),
				"status":      status.String,
			})
		}
		rows.Close()

		urgentMeetings := []interface{}{}
		rows, err = b.db.Query("SELECT id, title, start_date FROM "+tables["meeting"]+
			" WHERE start_date >= $1 AND start_date <= $2 ORDER BY start_date ASC LIMIT 10;", now, tomorrow)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4744: urgent meetings")
			http.Error(w, "Error 4744", http.StatusInternalServerError)
			return
		}
		for rows.Next() {
			var id int64
			var title sql.NullString
			var startDate sql.NullTime
			if err := rows.Scan(&id, &title, &startDate); err != nil {
				rows.Close()
				rlog.WithError(err).Errorf("Error 4743: cannot scan values")
				http.Error(w, "Error 4743", http.StatusInternalServerError)
				return
			}
			urgentMeetings = append(urgentMeetings, map[string]interface{}{
				"id":           id,
				"title":        nullableString(title),
				"meeting_type": nil,
				"start_date":   isoTime(startDate),
			})
		}
		rows.Close()

		response := map[string]interface{}{
			"untreated_leads":      untreatedLeads,
			"recent_matches":       recentMatches,
			"urgent_service_calls": urgentServiceCalls,
			"urgent_meetings":      urgentMeetings,
			"total_alerts":         len(untreatedLeads) + len(urgentServiceCalls) + len(urgentMeetings),
		}
		jsonData, _ := json.MarshalWithOption(response, json.DisableHTMLEscape())
		writeJSON(w, http.StatusOK, jsonData)
	}

	router.HandleFunc("/dashboard/stats/main", mainStats).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/stats/brokerage", brokerageStats).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/stats/projects", projectsStats).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/stats/property-management", propertyManagementStats).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/recent-activity", recentActivity).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/alerts", alerts).Methods(http.MethodGet)
}

func orDefault(s sql.NullString, fallback string) string {
	if s.Valid && s.String != "" {
		return s.String
	}
	return fallback
}

func nullableString(s sql.NullString) interface{} {
	if s.Valid {
		return s.String
	}
	return nil
}

func nullableFloat(f sql.NullFloat64) interface{} {
	if f.Valid {
		return f.Float64
	}
	return nil
}

func nullableInt(n sql.NullInt64) interface{} {
	if n.Valid {
		return n.Int64
	}
	return nil
}

// lastDigits renders the trailing digits of an id, used as a fallback
// call number
func lastDigits(id int64, n int) string {
	s := strconv.FormatInt(id, 10)
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func timeKey(t interface{}) string {
	if s, ok := t.(string); ok {
		return s
	}
	return ""
}
