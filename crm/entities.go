// Package crm defines the entity catalogue of the TAV 360 brokerage
// backend. Entities are declared in dependency order, referenced
// entities first, so the tables can be created in one pass.
package crm

import (
	"github.com/tav360/crm-backend/core/registry"
)

// NewRegistry returns the entity catalogue.
func NewRegistry() *registry.Registry {
	return registry.MustNew(descriptors())
}

func descriptors() []registry.EntityDescriptor {
	return []registry.EntityDescriptor{
		{
			Name:     "contact",
			Table:    "contacts",
			SchemaID: ContactSchemaID,
			Fields: []registry.Field{
				{Name: "full_name", Type: registry.String, Required: true},
				{Name: "phone", Type: registry.String},
				{Name: "email", Type: registry.String},
				{Name: "address", Type: registry.Text},
				{Name: "notes", Type: registry.Text},
			},
		},
		{
			Name:  "property",
			Table: "properties",
			Fields: []registry.Field{
				{Name: "contact_id", Type: registry.Integer, References: "contact"},
				{Name: "category", Type: registry.String},
				{Name: "property_type", Type: registry.String},
				{Name: "city", Type: registry.String},
				{Name: "area", Type: registry.String},
				{Name: "street", Type: registry.String},
				{Name: "building_number", Type: registry.String},
				{Name: "apartment_number", Type: registry.String},
				{Name: "price", Type: registry.Numeric},
				{Name: "rooms", Type: registry.Integer},
				{Name: "floor", Type: registry.Integer},
				{Name: "total_floors", Type: registry.Integer},
				{Name: "parking", Type: registry.Boolean},
				{Name: "air_conditioning", Type: registry.Boolean},
				{Name: "storage", Type: registry.Boolean},
				{Name: "status", Type: registry.String},
				{Name: "listing_type", Type: registry.String},
				{Name: "handler", Type: registry.String},
				{Name: "source", Type: registry.String},
				{Name: "image_urls", Type: registry.StringArray},
			},
		},
		{
			Name:  "client",
			Table: "clients",
			Fields: []registry.Field{
				{Name: "contact_id", Type: registry.Integer, References: "contact"},
				{Name: "request_type", Type: registry.String},
				{Name: "preferred_property_type", Type: registry.String},
				{Name: "budget", Type: registry.Numeric},
				{Name: "preferred_rooms", Type: registry.String},
				{Name: "city", Type: registry.String},
				{Name: "neighborhood", Type: registry.String},
				{Name: "street", Type: registry.String},
				{Name: "rooms_min", Type: registry.Integer},
				{Name: "rooms_max", Type: registry.Integer},
				{Name: "client_type", Type: registry.String},
				{Name: "seriousness", Type: registry.String},
				// the intake pipeline and the alert queries track a status label
				{Name: "status", Type: registry.String},
				{Name: "additional_notes", Type: registry.Text},
				{Name: "opt_out_whatsapp", Type: registry.Boolean},
				{Name: "source", Type: registry.String},
			},
		},
		{
			Name:  "meeting",
			Table: "meetings",
			Fields: []registry.Field{
				{Name: "title", Type: registry.String, Required: true},
				{Name: "start_date", Type: registry.Timestamp, Required: true},
				{Name: "end_date", Type: registry.Timestamp},
				{Name: "location", Type: registry.String},
				{Name: "description", Type: registry.Text},
				{Name: "contact_id", Type: registry.Integer, References: "contact"},
			},
		},
		{
			Name:  "task",
			Table: "tasks",
			Fields: []registry.Field{
				{Name: "title", Type: registry.String, Required: true},
				{Name: "description", Type: registry.Text},
				{Name: "status", Type: registry.String},
				{Name: "due_date", Type: registry.Timestamp},
				{Name: "contact_id", Type: registry.Integer, References: "contact"},
			},
		},
		{
			Name:  "servicecall",
			Table: "service_calls",
			Fields: []registry.Field{
				{Name: "title", Type: registry.String, Required: true},
				{Name: "description", Type: registry.Text},
				{Name: "status", Type: registry.String},
				// urgency and call_number feed the alert and activity views
				{Name: "urgency", Type: registry.String},
				{Name: "call_number", Type: registry.String},
				{Name: "property_id", Type: registry.Integer, References: "property"},
				{Name: "contact_id", Type: registry.Integer, References: "contact"},
			},
		},
		{
			Name:  "supplier",
			Table: "suppliers",
			Fields: []registry.Field{
				{Name: "name", Type: registry.String, Required: true},
				{Name: "contact_person", Type: registry.String},
				{Name: "phone", Type: registry.String},
				{Name: "email", Type: registry.String},
				{Name: "address", Type: registry.Text},
				{Name: "notes", Type: registry.Text},
			},
		},
		{
			Name:  "project",
			Table: "projects",
			Fields: []registry.Field{
				{Name: "name", Type: registry.String, Required: true},
				{Name: "description", Type: registry.Text},
				{Name: "location", Type: registry.String},
				{Name: "developer", Type: registry.String},
				{Name: "total_units", Type: registry.Integer},
				{Name: "price_range_min", Type: registry.Numeric},
				{Name: "price_range_max", Type: registry.Numeric},
				// the projects dashboard counts projects open for residents
				{Name: "status", Type: registry.String},
			},
		},
		{
			Name:  "projectlead",
			Table: "project_leads",
			Fields: []registry.Field{
				{Name: "contact_id", Type: registry.Integer, References: "contact"},
				{Name: "project_id", Type: registry.Integer, References: "project"},
				{Name: "interest_level", Type: registry.String},
				{Name: "budget", Type: registry.Numeric},
				{Name: "preferred_units", Type: registry.String},
				{Name: "notes", Type: registry.Text},
			},
		},
		{
			Name:  "marketinglead",
			Table: "marketing_leads",
			Fields: []registry.Field{
				{Name: "contact_id", Type: registry.Integer, References: "contact"},
				{Name: "phone_number", Type: registry.String},
				{Name: "first_name", Type: registry.String},
				{Name: "last_name", Type: registry.String},
				{Name: "budget", Type: registry.Numeric},
				{Name: "neighborhood", Type: registry.String},
				{Name: "street", Type: registry.String},
				{Name: "rooms_min", Type: registry.Integer},
				{Name: "rooms_max", Type: registry.Integer},
				{Name: "client_type", Type: registry.String},
				{Name: "seriousness", Type: registry.String},
				{Name: "additional_notes", Type: registry.Text},
				{Name: "opt_out_whatsapp", Type: registry.Boolean},
				{Name: "source", Type: registry.String},
			},
		},
		{
			Name:  "marketinglog",
			Table: "marketing_logs",
			Fields: []registry.Field{
				{Name: "lead_id", Type: registry.Integer, References: "marketinglead"},
				{Name: "phone_number", Type: registry.String},
				{Name: "message_sent", Type: registry.Text},
				{Name: "status", Type: registry.String},
				{Name: "sent_by", Type: registry.Integer},
			},
		},
		{
			Name:  "propertyowner",
			Table: "property_owners",
			Fields: []registry.Field{
				{Name: "contact_id", Type: registry.Integer, References: "contact"},
				{Name: "property_id", Type: registry.Integer, References: "property"},
				{Name: "ownership_percentage", Type: registry.Numeric},
				{Name: "notes", Type: registry.Text},
			},
		},
		{
			Name:     "tenant",
			Table:    "tenants",
			Validate: validateTenantLease,
			Fields: []registry.Field{
				{Name: "contact_id", Type: registry.Integer, References: "contact"},
				{Name: "property_id", Type: registry.Integer, References: "property"},
				{Name: "lease_start_date", Type: registry.Date},
				{Name: "lease_end_date", Type: registry.Date},
				{Name: "monthly_rent", Type: registry.Numeric},
				{Name: "deposit", Type: registry.Numeric},
				{Name: "notes", Type: registry.Text},
			},
		},
		{
			Name:  "match",
			Table: "matches",
			Fields: []registry.Field{
				{Name: "property_id", Type: registry.Integer, Required: true, References: "property"},
				{Name: "client_id", Type: registry.Integer, Required: true, References: "client"},
				{Name: "match_score", Type: registry.Integer},
				{Name: "status", Type: registry.String},
				{Name: "notes", Type: registry.Text},
			},
		},
		{
			Name:  "workorder",
			Table: "work_orders",
			Fields: []registry.Field{
				{Name: "title", Type: registry.String},
				{Name: "description", Type: registry.Text},
				{Name: "status", Type: registry.String},
				{Name: "property_id", Type: registry.Integer, References: "property"},
				{Name: "contact_id", Type: registry.Integer, References: "contact"},
				{Name: "supplier_id", Type: registry.Integer, References: "supplier"},
				{Name: "cost", Type: registry.Numeric},
			},
		},
		{
			Name:  "donotcalllist",
			Table: "do_not_call_list",
			Fields: []registry.Field{
				{Name: "phone_number", Type: registry.String, Required: true},
				{Name: "reason", Type: registry.Text},
				{Name: "notes", Type: registry.Text},
			},
		},
		{
			Name:  "campaign",
			Table: "campaigns",
			Fields: []registry.Field{
				{Name: "name", Type: registry.String, Required: true},
				{Name: "description", Type: registry.Text},
				{Name: "start_date", Type: registry.Date},
				{Name: "end_date", Type: registry.Date},
				{Name: "status", Type: registry.String},
			},
		},
		{
			Name:  "campaignmetrics",
			Table: "campaign_metrics",
			Fields: []registry.Field{
				{Name: "campaign_id", Type: registry.Integer, Required: true, References: "campaign"},
				{Name: "sent_count", Type: registry.Integer},
				{Name: "delivered_count", Type: registry.Integer},
				{Name: "opened_count", Type: registry.Integer},
				{Name: "clicked_count", Type: registry.Integer},
				{Name: "conversion_count", Type: registry.Integer},
				{Name: "cost", Type: registry.Numeric},
			},
		},
		{
			Name:  "accountingdocuments",
			Table: "accounting_documents",
			Fields: []registry.Field{
				{Name: "document_type", Type: registry.String},
				{Name: "document_number", Type: registry.String},
				{Name: "amount", Type: registry.Numeric},
				{Name: "date", Type: registry.Date},
				{Name: "property_id", Type: registry.Integer, References: "property"},
				{Name: "contact_id", Type: registry.Integer, References: "contact"},
				{Name: "file_url", Type: registry.String},
				{Name: "notes", Type: registry.Text},
			},
		},
		{Name: "propertybrokerage", Table: "property_brokerage", Upstream: true},
		{Name: "buyersrenters", Table: "buyers_renters", Upstream: true},
		{Name: "buyersbrokerage", Table: "buyers_brokerage", Upstream: true},
		{Name: "matchesbrokerage", Table: "matches_brokerage", Upstream: true},
		{Name: "propertyinventory", Table: "property_inventory", Upstream: true},
	}
}
