package catalog

// Defaults is the catalog seeded on first run or after the file turned out unreadable.
func Defaults() []Profile {
	return []Profile{
		{Name: "Google", Addresses: Pair{"8.8.8.8", "8.8.4.4"}},
		{Name: "Cloudflare", Addresses: Pair{"1.1.1.1", "1.0.0.1"}},
		{Name: "Electro", Addresses: Pair{"78.157.42.100", "78.157.42.101"}},
		{Name: "Shekan", Addresses: Pair{"178.22.122.100", "185.51.200.2"}},
		{Name: "Radar Games", Addresses: Pair{"10.202.10.10", "10.202.10.11"}},
	}
}
