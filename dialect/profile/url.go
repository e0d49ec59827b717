package profile

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	geequery "github.com/GeeQuery/geequery-orm"
	"github.com/GeeQuery/geequery-orm/dialect"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
)

// ConnectInfo is what can be learned about a database from its connection
// URL or DSN.
type ConnectInfo struct {
	Profile  string // Dialect name
	Host     string
	Port     int
	Database string // Database, service name or file path
	User     string
	Password string
	Params   map[string]string
}

// Vendor returns the profile of the connection.
func (c ConnectInfo) Vendor() *Vendor {
	v, _ := Lookup(c.Profile)
	return v
}

// Default ports per dialect.
var defaultPorts = map[string]int{
	dialect.Postgres: 5432,
	dialect.MySQL:    3306,
	dialect.Oracle:   1521,
	dialect.Derby:    1527,
	dialect.DB2:      50000,
}

// ParseURL parses a JDBC URL (jdbc:vendor:...) or a Go driver DSN. Postgres
// DSNs are parsed by pgx, MySQL DSNs by go-sql-driver/mysql.
func ParseURL(raw string) (ConnectInfo, error) {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	var (
		info ConnectInfo
		err  error
	)
	switch {
	case strings.HasPrefix(lower, "jdbc:"):
		info, err = parseJDBC(s[len("jdbc:"):])
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		info, err = parsePostgres(s)
	case strings.HasPrefix(lower, "mysql://"):
		info, err = parseMySQL(s[len("mysql://"):])
	case strings.HasPrefix(lower, "sqlite://"):
		info = sqliteInfo(s[len("sqlite://"):])
	case strings.HasPrefix(lower, "file:"), lower == ":memory:",
		strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"):
		info = sqliteInfo(s)
	case strings.Contains(s, "@tcp("), strings.Contains(s, "@unix("), strings.Contains(s, "@/"):
		info, err = parseMySQL(s)
	case strings.Contains(lower, "host="), strings.Contains(lower, "dbname="):
		info, err = parsePostgres(s)
	default:
		err = geequery.NewFormatError("connection url", raw, nil)
	}
	if err != nil {
		return ConnectInfo{}, err
	}
	if info.Port == 0 {
		info.Port = defaultPorts[info.Profile]
	}
	return info, nil
}

func parsePostgres(dsn string) (ConnectInfo, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return ConnectInfo{}, geequery.NewFormatError("postgres dsn", dsn, err)
	}
	return ConnectInfo{
		Profile:  dialect.Postgres,
		Host:     cfg.Host,
		Port:     int(cfg.Port),
		Database: cfg.Database,
		User:     cfg.User,
		Password: cfg.Password,
		Params:   cfg.RuntimeParams,
	}, nil
}

func parseMySQL(dsn string) (ConnectInfo, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return ConnectInfo{}, geequery.NewFormatError("mysql dsn", dsn, err)
	}
	info := ConnectInfo{
		Profile:  dialect.MySQL,
		Database: cfg.DBName,
		User:     cfg.User,
		Password: cfg.Passwd,
		Params:   cfg.Params,
	}
	if cfg.Net == "tcp" {
		info.Host, info.Port = splitHostPort(cfg.Addr)
	} else {
		info.Host = cfg.Addr
	}
	return info, nil
}

func sqliteInfo(path string) ConnectInfo {
	info := ConnectInfo{Profile: dialect.SQLite, Database: path}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		info.Database = path[:i]
		info.Params = queryParams(path[i+1:], "&")
	}
	return info
}

// parseJDBC parses the part after "jdbc:".
func parseJDBC(s string) (ConnectInfo, error) {
	sub, rest, ok := strings.Cut(s, ":")
	if !ok {
		return ConnectInfo{}, geequery.NewFormatError("jdbc url", "jdbc:"+s, nil)
	}
	switch strings.ToLower(sub) {
	case "postgresql":
		return parseHierarchical(dialect.Postgres, rest, "&")
	case "mysql", "mariadb":
		return parseHierarchical(dialect.MySQL, rest, "&")
	case "db2":
		return parseHierarchical(dialect.DB2, rest, ";")
	case "sqlite":
		return sqliteInfo(rest), nil
	case "derby":
		return parseDerby(rest)
	case "oracle":
		return parseOracle(rest)
	}
	return ConnectInfo{}, geequery.NewUnsupportedError(sub, "jdbc url")
}

// parseHierarchical parses //host:port/db?params.
func parseHierarchical(profile, rest, paramSep string) (ConnectInfo, error) {
	if !strings.HasPrefix(rest, "//") {
		return ConnectInfo{}, geequery.NewFormatError("jdbc url", rest, nil)
	}
	var params string
	if i := strings.IndexAny(rest, "?;"); i >= 0 && paramSep == ";" {
		rest, params = rest[:i], strings.TrimLeft(rest[i:], "?;")
	}
	u, err := url.Parse("x:" + rest)
	if err != nil {
		return ConnectInfo{}, geequery.NewFormatError("jdbc url", rest, err)
	}
	info := ConnectInfo{
		Profile:  profile,
		Host:     u.Hostname(),
		Database: strings.TrimPrefix(u.Path, "/"),
	}
	if p := u.Port(); p != "" {
		if info.Port, err = strconv.Atoi(p); err != nil {
			return ConnectInfo{}, geequery.NewFormatError("port", p, err)
		}
	}
	if u.RawQuery != "" {
		params = u.RawQuery
	}
	if params != "" {
		info.Params = queryParams(params, paramSep)
	}
	if info.Params != nil {
		info.User = info.Params["user"]
		info.Password = info.Params["password"]
	}
	if u.User != nil {
		info.User = u.User.Username()
		info.Password, _ = u.User.Password()
	}
	return info, nil
}

// parseDerby parses //host:port/db;attrs (network) or [memory:]db;attrs
// (embedded).
func parseDerby(rest string) (ConnectInfo, error) {
	if strings.HasPrefix(rest, "//") {
		return parseHierarchical(dialect.Derby, rest, ";")
	}
	info := ConnectInfo{Profile: dialect.Derby}
	db, attrs, _ := strings.Cut(rest, ";")
	info.Database = db
	if attrs != "" {
		info.Params = queryParams(attrs, ";")
	}
	if info.Database == "" {
		return ConnectInfo{}, geequery.NewFormatError("jdbc url", rest, nil)
	}
	return info, nil
}

// parseOracle parses thin:@host:port:SID and thin:@//host:port/service, with
// optional user/password before the '@'.
func parseOracle(rest string) (ConnectInfo, error) {
	driverType, target, ok := strings.Cut(rest, ":")
	if !ok || (driverType != "thin" && driverType != "oci") {
		return ConnectInfo{}, geequery.NewFormatError("oracle url", rest, nil)
	}
	info := ConnectInfo{Profile: dialect.Oracle}
	creds, addr, ok := strings.Cut(target, "@")
	if !ok {
		return ConnectInfo{}, geequery.NewFormatError("oracle url", rest, nil)
	}
	if creds != "" {
		info.User, info.Password, _ = strings.Cut(creds, "/")
	}
	if strings.HasPrefix(addr, "//") {
		hostport, service, _ := strings.Cut(addr[2:], "/")
		info.Host, info.Port = splitHostPort(hostport)
		info.Database = service
		return info, nil
	}
	parts := strings.Split(addr, ":")
	if len(parts) != 3 {
		return ConnectInfo{}, geequery.NewFormatError("oracle url", rest, nil)
	}
	info.Host, info.Database = parts[0], parts[2]
	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return ConnectInfo{}, geequery.NewFormatError("port", parts[1], err)
	}
	info.Port = port
	return info, nil
}

func splitHostPort(hostport string) (string, int) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, 0
	}
	n, _ := strconv.Atoi(port)
	return host, n
}

func queryParams(s, sep string) map[string]string {
	params := make(map[string]string)
	for _, kv := range strings.Split(s, sep) {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if uv, err := url.QueryUnescape(v); err == nil {
			v = uv
		}
		params[k] = v
	}
	return params
}
