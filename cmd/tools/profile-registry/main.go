// cmd/tools/profile-registry/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"expert-router/internal/routing"
	"expert-router/pkg/registry"
)

var registryPath string

func main() {
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{initCmd, addCmd, updateCmd, validateCmd, listCmd} {
		fs.StringVar(&registryPath, "path", "configs/agent-profiles.json", "Path to registry file")
	}

	force := initCmd.Bool("force", false, "Overwrite an existing file")

	// Add command flags
	name := addCmd.String("name", "", "Agent name (e.g., offer-architect)")
	description := addCmd.String("description", "", "Description")
	expertise := addCmd.String("expertise", "", "Comma separated expertise keywords")
	priority := addCmd.Int("priority", 5, "Routing priority bonus")
	confidence := addCmd.Float64("confidence", 0.8, "Seed average confidence (0..1)")
	successRate := addCmd.Float64("successRate", 0.8, "Seed success rate (0..1)")
	responseTime := addCmd.Float64("responseTime", 2.0, "Average response time in seconds")

	// Update command flags
	nameUpdate := updateCmd.String("name", "", "Agent name to update")
	field := updateCmd.String("field", "", "Field to update (description, expertise, priority, confidence, successRate, responseTime)")
	value := updateCmd.String("value", "", "New value for the field")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		initCmd.Parse(os.Args[2:])
		if err := initRegistry(registryPath, *force); err != nil {
			fmt.Printf("Error writing registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote built-in profiles to %s\n", registryPath)

	case "add":
		addCmd.Parse(os.Args[2:])
		if *name == "" || *expertise == "" {
			fmt.Println("Error: name and expertise are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		profile := registry.AgentProfile{
			Name:                   *name,
			Description:            *description,
			Expertise:              splitList(*expertise),
			Priority:               *priority,
			AverageConfidence:      *confidence,
			SuccessRate:            *successRate,
			AvgResponseTimeSeconds: *responseTime,
		}
		if err := addProfile(registryPath, profile); err != nil {
			fmt.Printf("Error adding profile: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added agent: %s\n", *name)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *nameUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: name, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateProfile(registryPath, *nameUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating profile: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated agent %s, field %s to %s\n", *nameUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		if _, err := routing.NewRegistry(routing.ProfilesFromRegistry(reg)); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d agents.\n", len(reg.Agents))

	case "list":
		listCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Error loading registry: %v\n", err)
			os.Exit(1)
		}
		for _, a := range reg.Agents {
			fmt.Printf("%-28s priority=%-2d confidence=%.2f success=%.2f response=%.1fs  %s\n",
				a.Name, a.Priority, a.AverageConfidence, a.SuccessRate, a.AvgResponseTimeSeconds,
				strings.Join(a.Expertise, ", "))
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

// initRegistry writes the built-in profiles so they can be tuned by hand.
func initRegistry(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", path)
	}
	reg := &registry.ProfileRegistry{Version: "1.0.0"}
	for _, c := range routing.DefaultProfiles() {
		reg.Agents = append(reg.Agents, registry.AgentProfile{
			Name:                   c.Name,
			Description:            c.Description,
			Expertise:              c.Expertise,
			Priority:               c.Priority,
			AverageConfidence:      c.AverageConfidence,
			SuccessRate:            c.SuccessRate,
			AvgResponseTimeSeconds: c.AvgResponseTimeSeconds,
		})
	}
	return save(path, reg)
}

func addProfile(path string, profile registry.AgentProfile) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.ProfileRegistry{Version: "1.0.0"}
	}

	if _, ok := reg.Find(profile.Name); ok {
		return fmt.Errorf("agent %s already exists", profile.Name)
	}
	reg.Agents = append(reg.Agents, profile)
	if err := reg.Validate(); err != nil {
		return err
	}
	return save(path, reg)
}

func updateProfile(path, name, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	a, ok := reg.Find(name)
	if !ok {
		return fmt.Errorf("agent %s not found", name)
	}

	switch field {
	case "description":
		a.Description = value
	case "expertise":
		a.Expertise = splitList(value)
	case "priority":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid priority value: %w", err)
		}
		a.Priority = n
	case "confidence", "successRate", "responseTime":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", field, err)
		}
		switch field {
		case "confidence":
			a.AverageConfidence = f
		case "successRate":
			a.SuccessRate = f
		default:
			a.AvgResponseTimeSeconds = f
		}
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := reg.Validate(); err != nil {
		return err
	}
	return save(path, reg)
}

func save(path string, reg *registry.ProfileRegistry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return registry.SaveRegistry(path, reg)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

func help() {
	fmt.Print(`
Usage: profile-registry <command> [flags]

Commands:
  init      Write the built-in agent profiles to a registry file
  add       Add a new agent profile
  update    Update one field of an agent profile
  validate  Validate the registry file
  list      Print the profiles in the registry
  help      Show this help message

Examples:
  profile-registry init -path configs/agent-profiles.json
  profile-registry add -name pricing-coach -expertise "pricing,discount,anchoring" -priority 6
  profile-registry update -name offer-architect -field priority -value 10
  profile-registry validate -path configs/agent-profiles.json

Use 'profile-registry <command> -h' for more information about a command.
` + "\n")
}
