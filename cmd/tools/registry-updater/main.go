// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"mongodb-connector/internal/common/errors"
	mongodbexport "mongodb-connector/internal/workers/mongodb/mongodb-export"
	mongodbimport "mongodb-connector/internal/workers/mongodb/mongodb-import"
	"mongodb-connector/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	syncCmd := flag.NewFlagSet("sync", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	syncPath := syncCmd.String("path", defaultRegistryPath, "Path to registry file")
	version := syncCmd.String("version", registry.CurrentVersion, "Version stamped on every activity")

	updatePath := updateCmd.String("path", defaultRegistryPath, "Path to registry file")
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, etc.)")
	value := updateCmd.String("value", "", "New value for the field")

	validatePath := validateCmd.String("path", defaultRegistryPath, "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "sync":
		syncCmd.Parse(os.Args[2:])
		if err := syncRegistry(*syncPath, *version); err != nil {
			fmt.Printf("Error syncing registry: %v\n", err)
			os.Exit(1)
		}

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateActivity(*updatePath, *idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(*validatePath)
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		if err := reg.Validate(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))

	case "help":
		fallthrough
	default:
		help()
	}
}

// connectorActivities describes the workers compiled into this binary.
func connectorActivities(version string) []registry.Activity {
	importCfg := mongodbimport.DefaultConfig()
	exportCfg := mongodbexport.DefaultConfig()

	return []registry.Activity{
		{
			ID:                   mongodbimport.TaskType,
			DisplayName:          "Import MongoDB Collection",
			Description:          "Uploads every document of a collection to a dataset as a prompt item",
			Category:             "data-access",
			Version:              version,
			TaskType:             mongodbimport.TaskType,
			ImplementationStatus: "completed",
			InputSchema:          mongodbimport.GetInputSchema().ToMap(),
			OutputSchema:         mongodbimport.GetOutputSchema().ToMap(),
			ErrorCodes:           codeStrings(mongodbimport.ErrorCodes()),
			Timeout:              importCfg.Timeout.String(),
			Retries:              maxRetries(mongodbimport.ErrorCodes()),
			Workflows:            []string{},
			Tags:                 []string{"mongodb", "dataset", "import"},
		},
		{
			ID:                   mongodbexport.TaskType,
			DisplayName:          "Export Best Response to MongoDB",
			Description:          "Writes the best annotated response of a prompt item back to its source document",
			Category:             "data-access",
			Version:              version,
			TaskType:             mongodbexport.TaskType,
			ImplementationStatus: "completed",
			InputSchema:          mongodbexport.GetInputSchema().ToMap(),
			OutputSchema:         mongodbexport.GetOutputSchema().ToMap(),
			ErrorCodes:           codeStrings(mongodbexport.ErrorCodes()),
			Timeout:              exportCfg.Timeout.String(),
			Retries:              maxRetries(mongodbexport.ErrorCodes()),
			Workflows:            []string{},
			Tags:                 []string{"mongodb", "annotation", "export"},
		},
	}
}

func syncRegistry(path, version string) error {
	reg, err := registry.LoadOrNew(path)
	if err != nil {
		return err
	}

	for _, activity := range connectorActivities(version) {
		if reg.Upsert(activity) {
			fmt.Printf("Added activity: %s\n", activity.ID)
		} else {
			fmt.Printf("Refreshed activity: %s\n", activity.ID)
		}
	}

	if err := reg.Validate(); err != nil {
		return err
	}
	return reg.Save(path)
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	activity := reg.Find(id)
	if activity == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		activity.ImplementationStatus = value
	case "version":
		activity.Version = value
	case "displayName":
		activity.DisplayName = value
	case "description":
		activity.Description = value
	case "category":
		activity.Category = value
	case "timeout":
		activity.Timeout = value
	case "workflow":
		activity.Workflows = append(activity.Workflows, value)
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	return reg.Save(path)
}

func codeStrings(codes []errors.ErrorCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}

func maxRetries(codes []errors.ErrorCode) int {
	n := 0
	for _, c := range codes {
		if r := errors.GetRetryCount(c); r > n {
			n = r
		}
	}
	return n
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  sync     Write or refresh the connector activities in the registry
  update   Update an existing activity's field
  validate Validate the registry file
  help     Show this help message

Examples:
  registry-updater sync -path configs/activity-registry.json
  registry-updater update -id mongodb.item.export -field workflow -value annotation-review
  registry-updater validate -path configs/activity-registry.json

Use 'registry-updater <command> -h' for more information about a command.
` + "\n")
}
