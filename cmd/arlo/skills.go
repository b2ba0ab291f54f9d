package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"arlo/internal/config"
	"arlo/internal/skills"
)

func newSkillsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Inspect installed agent skills",
	}
	cmd.AddCommand(newSkillsListCmd())
	cmd.AddCommand(newSkillsShowCmd())
	return cmd
}

// loadLibrary loads the skills directory without building the full
// agent runtime, so inspection works without LLM credentials.
func loadLibrary() (*config.Config, skills.Library, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, skills.Library{}, err
	}
	library, err := skills.NewLoader(nil).Load(cfg.Agent.SkillsDir)
	if err != nil {
		return nil, skills.Library{}, fmt.Errorf("load skills: %w", err)
	}
	return cfg, library, nil
}

func newSkillsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, library, err := loadLibrary()
			if err != nil {
				return err
			}

			all := library.List()
			if len(all) == 0 {
				fmt.Println("No skills installed.")
				fmt.Println(gray(fmt.Sprintf("skills directory: %s", cfg.Agent.SkillsDir)))
				return nil
			}
			for _, skill := range all {
				mode := "direct ok"
				if skill.Manifest.RequiresSandbox {
					mode = "sandbox required"
				}
				fmt.Printf("%s  %s\n", bold(skill.Name()), gray(mode))
				if skill.Manifest.Description != "" {
					fmt.Printf("  %s\n", skill.Manifest.Description)
				}
			}
			return nil
		},
	}
}

func newSkillsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Print a skill's instructions and bundled files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, library, err := loadLibrary()
			if err != nil {
				return err
			}

			skill, ok := library.Get(args[0])
			if !ok {
				return fmt.Errorf("skill %s is not installed", args[0])
			}
			fmt.Println(bold(skill.Name()))
			if skill.Manifest.Description != "" {
				fmt.Println(skill.Manifest.Description)
			}
			fmt.Println()
			fmt.Println(skill.Manifest.Body)
			if len(skill.Files) > 0 {
				fmt.Println(gray(fmt.Sprintf("%d bundled files", len(skill.Files))))
			}
			return nil
		},
	}
}
