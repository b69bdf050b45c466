package benchmark

type Config struct {
	Host string
	Port int
}

func (c *Config) Init() {
	c.Host = "localhost"
	c.Port = 8080
}

func newConfig() *Config {
	return &Config{Host: "localhost", Port: 8080}
}
