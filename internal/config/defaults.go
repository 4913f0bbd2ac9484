package config

// defaultCategories is the battery test and manufacturing watch list
// the monitor ships with. Each category turns into one search query,
// so adding a keyword here is free while adding a category spends one
// budget unit per run.
func defaultCategories() []Category {
	return []Category{
		{
			Name: "Cell/Battery Tester",
			Keywords: []string{
				"Battery Tester",
				"Battery Cycler",
				"Battery Capacity Tester",
				"Battery Aging Machine",
				"Battery Charger-Discharger",
				"Computer Operated Battery Cycler",
				"Computer Operated Battery Tester",
				"Cell Tester",
				"Cell Cycler",
				"Cell Capacity Tester",
				"Cell Aging Machine",
				"Cell Charger Discharger",
				"Computer Operated Cell Cycler",
				"Computer Operated Cell Tester",
				"Cell Grading Machine",
			},
		},
		{
			Name: "BESS",
			Keywords: []string{
				"BESS",
				"Battery Energy Storage System",
				"GWH battery",
				"Battery Pack Assembly Plant",
				"BESS Manufacturing Plant",
				"Power Conversion System",
				"PCS battery",
				"C&I BESS",
				"C&I ESS",
				"ESS for Data Centers",
			},
		},
		{
			Name: "Cell Assembly Line",
			Keywords: []string{
				"Lithium ion cell assembly line",
				"Battery cell manufacturing",
				"Pouch cell line",
				"Cylindrical cell line",
				"Prismatic cell assembly",
				"Battery formation ageing",
				"Cell formation system",
				"Formation testing equipment",
				"Environmental chamber battery",
				"Advanced chemistry cell manufacturing",
				"Cell Manufacturing Plant",
			},
		},
		{
			Name: "Cell Chemistries",
			Keywords: []string{
				"Sodium Ion battery",
				"Metal Air battery",
				"Aluminum Air battery",
				"Sodium Silicate battery",
				"Agnostic Chemistry battery",
				"Lead Acid battery",
				"Ni Cd battery",
				"Nickel Cadmium battery",
			},
		},
		{
			Name: "Competition",
			Keywords: []string{
				"RePower battery",
				"Neware battery",
				"Chroma battery tester",
				"Bitrode battery",
				"Arbin battery",
				"ACEY battery",
				"Sinexcel",
				"Nebula Electronics battery",
				"SEMCO battery",
				"DNA Technologies battery",
				"Encore Systems battery",
				"Indygreen Technologies",
			},
		},
	}
}
