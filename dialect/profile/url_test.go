package profile

import (
	"testing"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		url  string
		want ConnectInfo
	}{
		{
			url:  "jdbc:postgresql://db.local:5433/app?user=alice&password=s3cret",
			want: ConnectInfo{Profile: dialect.Postgres, Host: "db.local", Port: 5433, Database: "app", User: "alice", Password: "s3cret", Params: map[string]string{"user": "alice", "password": "s3cret"}},
		},
		{
			url:  "jdbc:mysql://localhost/shop",
			want: ConnectInfo{Profile: dialect.MySQL, Host: "localhost", Port: 3306, Database: "shop"},
		},
		{
			url:  "jdbc:oracle:thin:@ora.local:1521:ORCL",
			want: ConnectInfo{Profile: dialect.Oracle, Host: "ora.local", Port: 1521, Database: "ORCL"},
		},
		{
			url:  "jdbc:oracle:thin:scott/tiger@//ora.local:1522/sales.example",
			want: ConnectInfo{Profile: dialect.Oracle, Host: "ora.local", Port: 1522, Database: "sales.example", User: "scott", Password: "tiger"},
		},
		{
			url:  "jdbc:derby://derby.local:1528/testdb;create=true",
			want: ConnectInfo{Profile: dialect.Derby, Host: "derby.local", Port: 1528, Database: "testdb", Params: map[string]string{"create": "true"}},
		},
		{
			url:  "jdbc:derby:memory:testdb;create=true",
			want: ConnectInfo{Profile: dialect.Derby, Port: 1527, Database: "memory:testdb", Params: map[string]string{"create": "true"}},
		},
		{
			url:  "jdbc:db2://db2.local:50001/SAMPLE",
			want: ConnectInfo{Profile: dialect.DB2, Host: "db2.local", Port: 50001, Database: "SAMPLE"},
		},
		{
			url:  "jdbc:sqlite:/tmp/app.db",
			want: ConnectInfo{Profile: dialect.SQLite, Database: "/tmp/app.db"},
		},
		{
			url:  "file:test.db?cache=shared",
			want: ConnectInfo{Profile: dialect.SQLite, Database: "file:test.db", Params: map[string]string{"cache": "shared"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ParseURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseURLDriverDSN(t *testing.T) {
	info, err := ParseURL("postgres://bob:pw@pg.local:6543/inventory?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, info.Profile)
	assert.Equal(t, "pg.local", info.Host)
	assert.Equal(t, 6543, info.Port)
	assert.Equal(t, "inventory", info.Database)
	assert.Equal(t, "bob", info.User)
	assert.Equal(t, "pw", info.Password)
	assert.Same(t, Postgres, info.Vendor())

	info, err = ParseURL("root:secret@tcp(mysql.local:3307)/orders?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, dialect.MySQL, info.Profile)
	assert.Equal(t, "mysql.local", info.Host)
	assert.Equal(t, 3307, info.Port)
	assert.Equal(t, "orders", info.Database)
	assert.Equal(t, "root", info.User)
	assert.Equal(t, "secret", info.Password)
}

func TestParseURLErrors(t *testing.T) {
	for _, raw := range []string{"", "not a url", "jdbc:oracle:thin:ora.local", "jdbc:mysql:localhost"} {
		_, err := ParseURL(raw)
		assert.Error(t, err, raw)
		assert.True(t, geequery.IsFormatError(err), raw)
	}
	_, err := ParseURL("jdbc:sqlserver://h;databaseName=x")
	assert.True(t, geequery.IsUnsupported(err))
}
