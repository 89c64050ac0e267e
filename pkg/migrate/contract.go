package migrate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/caseflow-backend/pkg/db/models"
)

// MinSchemaVersion is the oldest migration version the service can run against.
const MinSchemaVersion int64 = 20250101000300

// Capabilities reports the optional schema features detected at startup.
type Capabilities struct {
	OrderMetadata bool
}

// Contract lists the schema the service depends on.
type Contract struct {
	MinVersion int64
	// Required tables and their columns. Any gap fails startup.
	Required map[string][]string
	// OrderMetadata columns are optional unless RequireOrderMetadata is set.
	OrderMetadata        []string
	RequireOrderMetadata bool
}

// DefaultContract is the schema used by order creation and reporting.
func DefaultContract(requireOrderMetadata bool) Contract {
	return Contract{
		MinVersion: MinSchemaVersion,
		Required: map[string][]string{
			"products": {
				"id", "tenant_id", "name", "category", "sell_per_unit", "sell_per_case",
				"cost_per_unit", "cost_per_case", "units_per_case", "allow_unit", "allow_case",
				"stock_pieces", "deleted_at",
			},
			"buyer_price_overrides": {"tenant_id", "buyer_id", "product_id", "price_per_unit", "price_per_case"},
			"bulk_price_overrides":  {"tenant_id", "product_id", "price_per_unit", "price_per_case"},
			"buyer_links":           {"tenant_id", "buyer_id", "status"},
			"orders":                {"id", "tenant_id", "buyer_id", "status", "created_at"},
			"order_lines": {
				"id", "order_id", "tenant_id", "position", "product_id", "product_name", "granularity",
				"quantity", "units_per_case_snapshot", "unit_price_snapshot", "case_price_snapshot",
				"selling_price_at_time", "cost_price_at_time", "unit_cost_snapshot", "case_cost_snapshot",
				"line_total",
			},
			"invoices":      {"id", "tenant_id", "buyer_id", "status", "issued_at"},
			"invoice_lines": {"invoice_id", "tenant_id", "product_id", "description", "sold_as", "quantity"},
		},
		OrderMetadata:        models.OrderMetadataColumns,
		RequireOrderMetadata: requireOrderMetadata,
	}
}

// CheckContract verifies the live schema against the contract. A version of zero skips the
// version check, which is what tests against hand-built schemas do.
func CheckContract(ctx context.Context, conn *gorm.DB, version int64, contract Contract) (Capabilities, error) {
	var caps Capabilities
	if conn == nil {
		return caps, fmt.Errorf("db is required")
	}
	if version != 0 && contract.MinVersion != 0 && version < contract.MinVersion {
		return caps, fmt.Errorf("schema version %d is older than required %d", version, contract.MinVersion)
	}

	migrator := conn.WithContext(ctx).Migrator()

	tables := make([]string, 0, len(contract.Required))
	for table := range contract.Required {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	var missing []string
	for _, table := range tables {
		if !migrator.HasTable(table) {
			missing = append(missing, table)
			continue
		}
		for _, column := range contract.Required[table] {
			if !migrator.HasColumn(table, column) {
				missing = append(missing, table+"."+column)
			}
		}
	}
	if len(missing) > 0 {
		return caps, fmt.Errorf("schema contract violated, missing: %s", strings.Join(missing, ", "))
	}

	var absent []string
	for _, column := range contract.OrderMetadata {
		if !migrator.HasColumn("orders", column) {
			absent = append(absent, "orders."+column)
		}
	}
	if len(absent) > 0 && contract.RequireOrderMetadata {
		return caps, fmt.Errorf("order metadata required, missing: %s", strings.Join(absent, ", "))
	}
	caps.OrderMetadata = len(contract.OrderMetadata) > 0 && len(absent) == 0
	return caps, nil
}
