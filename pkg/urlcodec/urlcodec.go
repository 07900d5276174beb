// Package urlcodec 解析和格式化 URL。
//
// 解析结果拆成 protocol、auth、hostname、port、pathname、query、search、
// path、host、hash 这些独立字段，方便调用方逐个覆盖后再格式化回字符串。
package urlcodec

import (
	"net"
	"net/url"
	"strings"

	"emperror.dev/errors"
	"golang.org/x/net/idna"
)

// 这些协议格式化时总是带 "//"
var slashedProtocols = map[string]bool{
	"http:":   true,
	"https:":  true,
	"ftp:":    true,
	"gopher:": true,
	"file:":   true,
	"ws:":     true,
	"wss:":    true,
}

// URL 拆分后的 URL 各部分
type URL struct {
	Protocol string // "http:"
	Slashes  bool
	Auth     string // "user:pass"
	Host     string // hostname[:port]
	Port     string
	Hostname string
	Hash     string // "#frag"
	Search   string // "?a=b"
	Query    string // "a=b"
	Pathname string
	Path     string // pathname + search
	Href     string
}

// Parse 解析 URL。主机名会转成小写的 ASCII（IDNA）形式。
func Parse(raw string) (*URL, error) {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	res := &URL{}
	if u.User != nil {
		res.Auth = u.User.String()
	}

	rest := raw
	if u.Scheme != "" {
		res.Protocol = u.Scheme + ":"
		rest = raw[len(u.Scheme)+1:]
	}
	res.Slashes = strings.HasPrefix(rest, "//")

	if u.Host != "" {
		res.Hostname = NormalizeHostname(u.Hostname())
		res.Port = u.Port()
		res.Host = JoinHostPort(res.Hostname, res.Port)
	}

	if u.Opaque != "" {
		res.Pathname = u.Opaque
	} else {
		res.Pathname = u.EscapedPath()
	}
	if res.Pathname == "" && slashedProtocols[res.Protocol] {
		res.Pathname = "/"
	}

	if u.RawQuery != "" || u.ForceQuery {
		res.Query = u.RawQuery
		res.Search = "?" + u.RawQuery
	}
	if u.Fragment != "" {
		res.Hash = "#" + u.EscapedFragment()
	}

	res.Path = res.Pathname + res.Search
	res.Href = Format(res)

	return res, nil
}

// Format 把各部分拼回 URL。Host 非空时优先于 Hostname+Port，
// Search 非空时优先于 Query。
func Format(u *URL) string {
	var b strings.Builder

	protocol := u.Protocol
	if protocol != "" && !strings.HasSuffix(protocol, ":") {
		protocol += ":"
	}
	b.WriteString(protocol)

	host := u.Host
	if host == "" && u.Hostname != "" {
		host = JoinHostPort(u.Hostname, u.Port)
	}

	if u.Slashes || slashedProtocols[protocol] || host != "" {
		b.WriteString("//")
	}

	if u.Auth != "" && host != "" {
		b.WriteString(u.Auth)
		b.WriteString("@")
	}
	b.WriteString(host)

	pathname := strings.NewReplacer("?", "%3F", "#", "%23").Replace(u.Pathname)
	if host != "" && pathname != "" && !strings.HasPrefix(pathname, "/") {
		pathname = "/" + pathname
	}
	b.WriteString(pathname)

	search := u.Search
	if search == "" && u.Query != "" {
		search = "?" + u.Query
	}
	if search != "" && !strings.HasPrefix(search, "?") {
		search = "?" + search
	}
	b.WriteString(strings.ReplaceAll(search, "#", "%23"))

	hash := u.Hash
	if hash != "" && !strings.HasPrefix(hash, "#") {
		hash = "#" + hash
	}
	b.WriteString(hash)

	return b.String()
}

// JoinHostPort 拼接主机和端口，IPv6 地址加方括号
func JoinHostPort(hostname, port string) string {
	if strings.Contains(hostname, ":") && !strings.HasPrefix(hostname, "[") {
		hostname = "[" + hostname + "]"
	}
	if port == "" {
		return hostname
	}
	return hostname + ":" + port
}

// SplitHostPort 拆分 "host:port"。没有端口时 port 为空；
// 支持 "[::1]:8080" 形式。
func SplitHostPort(hostport string) (hostname, port string, hasPort bool) {
	if strings.HasPrefix(hostport, "[") {
		if h, p, err := net.SplitHostPort(hostport); err == nil {
			return h, p, true
		}
		return strings.Trim(hostport, "[]"), "", false
	}

	hostname, port, hasPort = strings.Cut(hostport, ":")
	return hostname, port, hasPort
}

// NormalizeHostname 把主机名转成小写 ASCII（IDNA）形式
func NormalizeHostname(hostname string) string {
	if hostname == "" || net.ParseIP(hostname) != nil {
		return strings.ToLower(hostname)
	}

	ascii, err := idna.Lookup.ToASCII(hostname)
	if err != nil {
		// 不合法的主机名原样保留，交给传输层报错
		return strings.ToLower(hostname)
	}
	return strings.ToLower(ascii)
}

// PrependHTTP 没有协议的 URL 前面补上 "http://"。
// 以 "/"、"./" 开头的相对地址和已有协议的地址原样返回，"localhost:3000" 视为缺少协议。
func PrependHTTP(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(strings.TrimLeft(raw, "."), "/") {
		return raw
	}
	if hasScheme(raw) && !strings.HasPrefix(raw, "localhost") {
		return raw
	}
	return "http://" + raw
}

// hasScheme 判断是否以 "\w+:" 开头
func hasScheme(raw string) bool {
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == ':':
			return i > 0
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		default:
			return false
		}
	}
	return false
}

// EscapePath 转义路径。合法的 %XX 原样保留（包括 %2F），
// 其余不允许出现在路径里的字节逐个转义，非法的 % 转成 %25。
func EscapePath(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '%' && i+2 < len(p) && isHex(p[i+1]) && isHex(p[i+2]):
			b.WriteString(p[i : i+3])
			i += 2
		case pathChar(c):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&15])
		}
	}
	return b.String()
}

const upperHex = "0123456789ABCDEF"

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// pathChar 路径中可以不转义的字符
func pathChar(c byte) bool {
	if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' {
		return true
	}
	return strings.IndexByte("-._~!$&'()*+,;=:@/[]", c) >= 0
}
