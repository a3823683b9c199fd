package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/student"
)

func (cli *commandLine) importStudents(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening csv file")
	}
	defer f.Close()

	rows, err := student.ReadCSV(f)
	if err != nil {
		return err
	}
	added, err := cli.studentSvc.Import(context.Background(), rows)
	if err != nil {
		return err
	}
	cli.logger.Info(fmt.Sprintf("%d of %d students imported", added, len(rows)))
	return nil
}

func (cli *commandLine) exportStudents(path string, classID int) error {
	students, err := cli.studentSvc.Export(context.Background(), student.QueryFilter{ClassID: classID})
	if err != nil {
		return err
	}
	if path == "" {
		return student.WriteCSV(cli.out, students)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating csv file")
	}
	if err = student.WriteCSV(f, students); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	cli.logger.Info(fmt.Sprintf("%d students exported to %s", len(students), path))
	return nil
}

func (cli *commandLine) createAccounts() error {
	ctx := context.Background()
	students, err := cli.studentSvc.Query(ctx, student.QueryFilter{})
	if err != nil {
		return err
	}
	created, err := cli.usrSvc.CreateStudentAccounts(ctx, student.AccountSeeds(students), cli.conf.Accounts)
	if err != nil {
		return err
	}
	cli.logger.Info(fmt.Sprintf("%d student accounts created", created))
	return nil
}
