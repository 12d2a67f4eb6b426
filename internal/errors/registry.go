package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://pages.vango.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Routing Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryRouting,
		Message:  "Page not found",
		Detail:   "No directory under the pages root resolves the requested URL to an index.html.",
		DocURL:   docBase + "E100",
	},
	"E101": {
		Category: CategoryRouting,
		Message:  "Invalid request path",
		Detail:   "The path contains a backslash, a NUL byte, an invalid percent-escape or a '..' that escapes the root.",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryRouting,
		Message:  "Pages root unreadable",
		Detail:   "A directory under the pages root could not be listed.",
		DocURL:   docBase + "E102",
	},

	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The pages.json or pages.yaml configuration file is malformed.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
		Detail:   "A required configuration value is not set.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		Detail:   "The configured port number is invalid.",
		DocURL:   docBase + "E122",
	},

	// ============================================
	// CLI Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Directory not empty",
		Detail:   "The project directory already contains a file the template would write.",
		DocURL:   docBase + "E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Not a pages project",
		Detail:   "The current directory is not a pages project. Run this command from a directory with pages.json or pages.yaml.",
		DocURL:   docBase + "E141",
	},
	"E142": {
		Category: CategoryBuild,
		Message:  "Build failed",
		Detail:   "The production build did not complete. Temporary HTML files have been removed.",
		DocURL:   docBase + "E142",
	},
	"E143": {
		Category: CategoryBuild,
		Message:  "Bundler command failed",
		Detail:   "The configured build.command exited with an error. Check its output above.",
		DocURL:   docBase + "E143",
	},
	"E144": {
		Category: CategoryBuild,
		Message:  "No build output",
		Detail:   "The output directory does not exist. Run `pages build` before `pages serve`.",
		DocURL:   docBase + "E144",
	},

	"E145": {
		Category: CategoryCLI,
		Message:  "Unknown template",
		Detail:   "The requested project template does not exist.",
		DocURL:   docBase + "E145",
	},
	"E147": {
		Category: CategoryCLI,
		Message:  "Invalid project name",
		Detail:   "Project names may contain lowercase letters, digits and hyphens, and must start with a letter.",
		DocURL:   docBase + "E147",
	},

	// ============================================
	// Generation Errors (E150-E159)
	// ============================================

	"E150": {
		Category: CategoryBuild,
		Message:  "HTML generation failed",
		Detail:   "A temporary index.html could not be written for a page directory.",
		DocURL:   docBase + "E150",
	},
	"E151": {
		Category: CategoryBuild,
		Message:  "HTML cleanup failed",
		Detail:   "A temporary index.html created for the build could not be removed.",
		DocURL:   docBase + "E151",
	},

	// ============================================
	// Publish Errors (E160-E169)
	// ============================================

	"E160": {
		Category: CategoryPublish,
		Message:  "Publish failed",
		Detail:   "Uploading the build output to object storage failed.",
		DocURL:   docBase + "E160",
	},
	"E161": {
		Category: CategoryPublish,
		Message:  "Nothing to publish",
		Detail:   "The build output directory does not exist or is empty.",
		DocURL:   docBase + "E161",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
