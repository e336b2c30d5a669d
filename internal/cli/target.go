package cli

import (
	"strings"

	"familytree/internal/app"
	"familytree/internal/model"
	"familytree/internal/treepath"

	"github.com/spf13/cobra"
)

// target addresses one person either by positional path or by serial.
type target struct {
	path   string
	serial int
}

func (t *target) bind(cmd *cobra.Command, what string) {
	cmd.Flags().StringVar(&t.path, "path", "", "Path of the "+what+" (e.g. root.children[0])")
	cmd.Flags().IntVar(&t.serial, "serial", 0, "Serial of the "+what+" (alternative to --path)")
}

func (t target) set() bool { return strings.TrimSpace(t.path) != "" || t.serial > 0 }

func (t target) resolve(ctl *app.Controller) (treepath.Path, error) {
	switch {
	case strings.TrimSpace(t.path) != "" && t.serial > 0:
		return treepath.Path{}, errUsage("use either --path or --serial, not both")
	case t.serial > 0:
		return ctl.PathForSerial(t.serial)
	case strings.TrimSpace(t.path) != "":
		return treepath.Parse(t.path)
	default:
		return treepath.Path{}, errUsage("missing --path or --serial")
	}
}

var personFlagNames = map[string]string{
	model.KeyName:          "name",
	model.KeyGender:        "gender",
	model.KeyMaritalStatus: "marital-status",
	model.KeyReligion:      "religion",
	model.KeyDOB:           "dob",
	model.KeyDOD:           "dod",
	model.KeyImage:         "image",
	model.KeyNotes:         "notes",
}

var personFlagUsage = map[string]string{
	model.KeyName:          "Full name",
	model.KeyGender:        "Male, Female or Other",
	model.KeyMaritalStatus: "Marital status",
	model.KeyReligion:      "Religion",
	model.KeyDOB:           "Date of birth (YYYY-MM-DD)",
	model.KeyDOD:           "Date of death (YYYY-MM-DD)",
	model.KeyImage:         "Image URL",
	model.KeyNotes:         "Notes (markdown)",
}

type personFlags map[string]*string

func bindPersonFlags(cmd *cobra.Command) personFlags {
	pf := personFlags{}
	for _, k := range model.EditableKeys {
		pf[k] = cmd.Flags().String(personFlagNames[k], "", personFlagUsage[k])
	}
	return pf
}

// fields returns the values of the flags given on the command line.
func (pf personFlags) fields(cmd *cobra.Command) (model.Fields, error) {
	in := map[string]string{}
	for k, v := range pf {
		if cmd.Flags().Changed(personFlagNames[k]) {
			in[k] = *v
		}
	}
	return model.NewFields(in)
}
