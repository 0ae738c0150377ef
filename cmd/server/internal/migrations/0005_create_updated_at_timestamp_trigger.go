package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0005, Down0005)
}

func Up0005(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `
CREATE FUNCTION touch_updated_at()
RETURNS TRIGGER AS $$
BEGIN
NEW.updated_at = current_timestamp;
RETURN NEW;
END;
$$ language 'plpgsql';
`},
		statement{
			query: `CREATE TRIGGER touch_auth_updated_at BEFORE UPDATE ON auth FOR EACH ROW EXECUTE PROCEDURE touch_updated_at();`,
		},
		statement{
			query: `CREATE TRIGGER touch_form_updated_at BEFORE UPDATE ON form FOR EACH ROW EXECUTE PROCEDURE touch_updated_at();`,
		},
		statement{
			query: `CREATE TRIGGER touch_form_submission_updated_at BEFORE UPDATE ON form_submission FOR EACH ROW EXECUTE PROCEDURE touch_updated_at();`,
		},
	)
}

func Down0005(ctx context.Context, tx *sql.Tx) error {
	return execStatements(ctx, tx,
		statement{query: `DROP TRIGGER touch_auth_updated_at ON auth;`},
		statement{query: `DROP TRIGGER touch_form_updated_at ON form;`},
		statement{query: `DROP TRIGGER touch_form_submission_updated_at ON form_submission;`},
		statement{query: `DROP FUNCTION touch_updated_at();`},
	)
}
