package model

// Category is the single classification of an MCP record.
// The set is closed; any value outside Categories is a bug.
type Category string

const (
	CategoryDatabases         Category = "databases"
	CategoryPayments          Category = "payments"
	CategoryAITools           Category = "ai-tools"
	CategoryDevelopmentTools  Category = "development-tools"
	CategoryCloudStorage      Category = "cloud-storage"
	CategoryMessaging         Category = "messaging"
	CategoryContentCreation   Category = "content-creation"
	CategoryMonitoring        Category = "monitoring"
	CategoryProjectManagement Category = "project-management"
	CategorySecurity          Category = "security"
	CategoryAutomation        Category = "automation"
	CategorySocialMedia       Category = "social-media"
	CategoryWebAPIs           Category = "web-apis"
	CategoryProductivity      Category = "productivity"
	CategoryInfrastructure    Category = "infrastructure"
	CategoryMediaProcessing   Category = "media-processing"
	CategoryFinance           Category = "finance"
	CategoryCommunication     Category = "communication"
	CategoryResearch          Category = "research"
	CategoryIoT               Category = "iot"
)

// Categories is the authoritative 20-element enum.
var Categories = []Category{
	CategoryDatabases,
	CategoryPayments,
	CategoryAITools,
	CategoryDevelopmentTools,
	CategoryCloudStorage,
	CategoryMessaging,
	CategoryContentCreation,
	CategoryMonitoring,
	CategoryProjectManagement,
	CategorySecurity,
	CategoryAutomation,
	CategorySocialMedia,
	CategoryWebAPIs,
	CategoryProductivity,
	CategoryInfrastructure,
	CategoryMediaProcessing,
	CategoryFinance,
	CategoryCommunication,
	CategoryResearch,
	CategoryIoT,
}

// Valid reports whether c belongs to the fixed category enum.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
