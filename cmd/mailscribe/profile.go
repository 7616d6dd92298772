package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shineum/mailscribe/internal/draft"
)

func newProfileCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the sender profile used in drafts",
	}
	cmd.AddCommand(
		newProfileShowCmd(opts),
		newProfileSetCmd(opts),
		newProfileClearCmd(opts),
	)
	return cmd
}

func newProfileShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			p := a.profiles.Load()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(p)
			}
			if p.IsEmpty() {
				fmt.Fprintln(cmd.OutOrStdout(), "profile is empty")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(p.Lines(), "\n"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the profile as JSON")
	return cmd
}

// profileFlag binds one profile field to a flag.
type profileFlag struct {
	name  string
	usage string
	field func(*draft.Profile) *string
}

var profileFlags = []profileFlag{
	{"name", "full name", func(p *draft.Profile) *string { return &p.Name }},
	{"title", "job title", func(p *draft.Profile) *string { return &p.Title }},
	{"company", "company", func(p *draft.Profile) *string { return &p.Company }},
	{"experience", "experience, e.g. 5 years", func(p *draft.Profile) *string { return &p.Experience }},
	{"location", "location", func(p *draft.Profile) *string { return &p.Location }},
	{"phone", "phone number", func(p *draft.Profile) *string { return &p.Phone }},
	{"email", "contact email", func(p *draft.Profile) *string { return &p.Email }},
	{"website", "website URL", func(p *draft.Profile) *string { return &p.Website }},
	{"linkedin", "LinkedIn URL", func(p *draft.Profile) *string { return &p.LinkedIn }},
	{"github", "GitHub URL", func(p *draft.Profile) *string { return &p.GitHub }},
	{"skills", "skills", func(p *draft.Profile) *string { return &p.Skills }},
	{"summary", "short summary", func(p *draft.Profile) *string { return &p.Summary }},
	{"achievements", "achievements", func(p *draft.Profile) *string { return &p.Achievements }},
}

func newProfileSetCmd(opts *rootOptions) *cobra.Command {
	var values draft.Profile
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields; fields without a flag keep their value",
		Example: `  mailscribe profile set --name "Ayşe Yılmaz" --title "Backend Engineer"
  mailscribe profile set --company ""`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			p := a.profiles.Load()
			changed := 0
			for _, pf := range profileFlags {
				if cmd.Flags().Changed(pf.name) {
					*pf.field(&p) = strings.TrimSpace(*pf.field(&values))
					changed++
				}
			}
			if changed == 0 {
				return fmt.Errorf("no profile fields given")
			}
			if err := a.profiles.Save(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "profile saved to %s\n", a.profiles.Path())
			return nil
		},
	}
	for _, pf := range profileFlags {
		cmd.Flags().StringVar(pf.field(&values), pf.name, "", pf.usage)
	}
	return cmd
}

func newProfileClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every profile field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return a.profiles.Save(draft.Profile{})
		},
	}
}
