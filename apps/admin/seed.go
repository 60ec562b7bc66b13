package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/charlesacademy/portal/core/classroom"
	appfs "github.com/charlesacademy/portal/fs"
)

const defaultSeedFile = "seed/classes.yaml"

type seedData struct {
	Classes []classroom.SeedClass `yaml:"classes"`
}

func (cli *commandLine) seed(path string) error {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = appfs.FS.ReadFile(defaultSeedFile)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return errors.Wrap(err, "reading seed file")
	}

	var sd seedData
	if err = yaml.Unmarshal(data, &sd); err != nil {
		return errors.Wrap(err, "parsing seed file")
	}

	nClasses, nSubjects, err := cli.classSvc.Seed(context.Background(), sd.Classes)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %d classes and %d subjects\n", nClasses, nSubjects)
	return nil
}
