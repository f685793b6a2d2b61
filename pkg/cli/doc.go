/*
Package cli provides helpers shared by the tabula commands.

Output Formatting:

Command results are rendered as text, JSON or CSV. Results that implement
Tabular render as aligned columns in text mode and as rows in CSV mode:

	formatter := cli.NewFormatter(cli.FormatCSV)
	if err := formatter.FormatTo(os.Stdout, results); err != nil {
		return err
	}

Exit Codes:

ConfigError, CommandError and ValidationError carry process exit codes.
main passes the error returned by cobra to ExitCode.

Progress Reporting:

Long batch evaluations report progress on stderr:

	progress := cli.NewProgressReporter(nil, "records")
	progress.Start(int64(len(records)))
	progress.Add(int64(len(chunk)))
	progress.Finish()

Signal Handling:

	ctx := cli.SetupSignalHandler()
	// ctx is canceled on SIGINT or SIGTERM
*/
package cli
