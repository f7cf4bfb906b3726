package repository

const defaultTable = "records"

type sqlOptions struct {
	table string
}

// Option configures the SQL backed stores.
type Option func(*sqlOptions)

// WithTable overrides the table holding the key-value pairs.
func WithTable(name string) Option {
	return func(o *sqlOptions) {
		if name != "" {
			o.table = name
		}
	}
}

func applyOptions(opts []Option) sqlOptions {
	o := sqlOptions{table: defaultTable}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
